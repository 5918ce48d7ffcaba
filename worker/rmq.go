package worker

import (
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"text2phenotype.com/postagger/rmq"
	"text2phenotype.com/postagger/tasks"
)

type messageQueue interface {
	pingSequencer(task *Task, message Message) error
	acknowledge(delivery *amqp.Delivery) error
	reject(delivery *amqp.Delivery, taskLogger zerolog.Logger)
	deliveries() <-chan amqp.Delivery
	reqChanErrors() <-chan *amqp.Error
	respChanErrors() <-chan *amqp.Error
	close()
}

type rmqQueue struct {
	rmqClient *rmq.Client
}

func (queue *rmqQueue) close() {
	queue.rmqClient.Close()
}

func (queue *rmqQueue) deliveries() <-chan amqp.Delivery {
	return queue.rmqClient.Deliveries
}

func (queue *rmqQueue) reqChanErrors() <-chan *amqp.Error {
	return queue.rmqClient.ReqChanErrors
}

func (queue *rmqQueue) respChanErrors() <-chan *amqp.Error {
	return queue.rmqClient.RespChanErrors
}

// pingSequencer hands the chunk back to the sequencer with this worker as sender.
func (queue *rmqQueue) pingSequencer(task *Task, message Message) error {
	message.Sender = tasks.WorkerName
	b, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return queue.rmqClient.SendMessageToSequencer(
		amqp.Publishing{
			ContentType: task.delivery.ContentType,
			Body:        b,
		},
	)
}

func (queue *rmqQueue) acknowledge(delivery *amqp.Delivery) error {
	return delivery.Ack(false)
}

// reject requeues a delivery once; a redelivered one is dropped.
func (queue *rmqQueue) reject(delivery *amqp.Delivery, taskLogger zerolog.Logger) {
	requeue := !delivery.Redelivered
	if requeue {
		taskLogger.Info().Msg("Requeuing delivery as it has not been redelivered yet")
	} else {
		taskLogger.Info().Msg("Rejecting delivery as it already has been redelivered")
	}
	if err := delivery.Reject(requeue); err != nil {
		taskLogger.Err(err).Bool("requeue", requeue).Msg("Failed to reject delivery")
	}
}
