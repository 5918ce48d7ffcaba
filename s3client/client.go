package s3client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"text2phenotype.com/postagger/logger"
)

type EnvironmentConfig struct {
	BucketName  string `envconfig:"MDL_COMN_STORAGE_CONTAINER_NAME" required:"true"`
	T2PEnv      string `envconfig:"T2P_ENV" required:"true"`
	Region      string `envconfig:"MDL_COMN_AWS_REGION_NAME" required:"true"`
	AwsEndpoint string `envconfig:"MDL_COMN_AWS_ENDPOINT_URL" default:""`
	AccessKeyID string `envconfig:"MDL_COMN_AWS_ACCESS_ID" default:""`
	AccessKey   string `envconfig:"MDL_COMN_AWS_ACCESS_KEY" default:""`
}

var ErrNoSession = errors.New("no S3 session")

var clientLogger = logger.NewLogger("S3 client")
var sdkLogger = logger.NewLogger("S3 SDK")

// Client reads and writes objects of one bucket. A failed call refreshes
// the session once and is retried.
type Client struct {
	env  EnvironmentConfig
	mu   sync.RWMutex
	sess *session.Session
}

func New() (*Client, error) {
	var env EnvironmentConfig
	if err := envconfig.Process("", &env); err != nil {
		clientLogger.Err(err).Msg("Failed to get proper variables from environment")
		return nil, err
	}
	client := Client{env: env}
	if err := client.refresh(); err != nil {
		return nil, err
	}
	return &client, nil
}

func (client *Client) Upload(ctx context.Context, data []byte, key string) error {
	return client.withRetry(key, func(sess *session.Session, keyLogger zerolog.Logger) error {
		uploader := s3manager.NewUploader(sess.Copy(&aws.Config{Logger: sdkLog(key, client.env.BucketName)}))
		keyLogger.Debug().Int("bytes", len(data)).Msg("Uploading the file")
		_, err := uploader.UploadWithContext(ctx, &s3manager.UploadInput{
			Bucket:      aws.String(client.env.BucketName),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		})
		return err
	})
}

func (client *Client) Download(ctx context.Context, key string) ([]byte, error) {
	var res []byte
	err := client.withRetry(key, func(sess *session.Session, keyLogger zerolog.Logger) error {
		downloader := s3manager.NewDownloader(sess.Copy(&aws.Config{Logger: sdkLog(key, client.env.BucketName)}))
		buf := aws.NewWriteAtBuffer([]byte{})
		keyLogger.Debug().Msg("Downloading file")
		size, err := downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
			Bucket: aws.String(client.env.BucketName),
			Key:    aws.String(key),
		})
		if err != nil {
			return err
		}
		keyLogger.Debug().Int64("bytes", size).Msg("Downloaded file")
		res = buf.Bytes()
		return nil
	})
	return res, err
}

func (client *Client) Close() {
	client.mu.Lock()
	client.sess = nil
	client.mu.Unlock()
}

func (client *Client) withRetry(key string, call func(sess *session.Session, keyLogger zerolog.Logger) error) error {
	keyLogger := clientLogger.With().
		Str("key", key).
		Str("bucket", client.env.BucketName).
		Logger()

	sess, err := client.session()
	if err != nil {
		return err
	}
	if err = call(sess, keyLogger); err == nil {
		return nil
	}
	keyLogger.Warn().Err(err).Msg("S3 call failed, refreshing session")
	if refreshErr := client.refresh(); refreshErr != nil {
		return fmt.Errorf("%v, refresh failed: %w", err, refreshErr)
	}
	if sess, err = client.session(); err != nil {
		return err
	}
	return call(sess, keyLogger)
}

func (client *Client) session() (*session.Session, error) {
	client.mu.RLock()
	defer client.mu.RUnlock()
	if client.sess == nil {
		return nil, ErrNoSession
	}
	return client.sess, nil
}

// refresh prefers the instance role and falls back to env credentials.
func (client *Client) refresh() error {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.sess = nil

	for _, source := range []struct {
		name   string
		config func() (*aws.Config, error)
	}{
		{"EC2", client.ec2Config},
		{"env credentials", client.envConfig},
	} {
		cfg, err := source.config()
		if err != nil {
			clientLogger.Warn().Err(err).Str("source", source.name).Msg("Skipping S3 credentials source")
			continue
		}
		sess, err := session.NewSession(cfg)
		if err != nil {
			clientLogger.Warn().Err(err).Str("source", source.name).Msg("Could not initialize S3 session")
			continue
		}
		if _, err = sts.New(sess).GetCallerIdentity(&sts.GetCallerIdentityInput{}); err != nil {
			clientLogger.Info().Err(err).Str("source", source.name).Msg("Could not verify S3 session")
			continue
		}
		client.sess = sess
		clientLogger.Info().Str("source", source.name).Msg("S3 session successfully initialized")
		return nil
	}
	return errors.New("could not initialize S3 session")
}

func (client *Client) ec2Config() (*aws.Config, error) {
	return aws.NewConfig().
		WithRegion(client.env.Region).
		WithMaxRetries(4).
		WithLogLevel(aws.LogDebug), nil
}

func (client *Client) envConfig() (*aws.Config, error) {
	creds := credentials.NewStaticCredentials(client.env.AccessKeyID, client.env.AccessKey, "")
	if _, err := creds.Get(); err != nil {
		return nil, err
	}
	cfg := aws.NewConfig().
		WithRegion(client.env.Region).
		WithMaxRetries(4).
		WithCredentials(creds).
		WithLogLevel(aws.LogDebug)

	if client.env.T2PEnv == "dev" && len(client.env.AwsEndpoint) > 0 {
		cfg = cfg.WithEndpoint(client.env.AwsEndpoint).WithS3ForcePathStyle(true)
	}
	return cfg, nil
}

type s3Logger struct {
	logger zerolog.Logger
}

func sdkLog(key string, bucket string) *s3Logger {
	return &s3Logger{sdkLogger.With().Str("key", key).Str("bucket", bucket).Logger()}
}

func (logger *s3Logger) Log(v ...interface{}) {
	logger.logger.Debug().Msg(fmt.Sprint(v...))
}
