package sideinput

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// ObjectStoreConfig addresses an S3 compatible store holding side inputs.
type ObjectStoreConfig struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	UseSSL    bool   `json:"use_ssl"`
}

// ObjectStoreConfigFromEnv reads SIDEINPUT_S3_* variables.
func ObjectStoreConfigFromEnv() ObjectStoreConfig {
	useSSL, _ := strconv.ParseBool(os.Getenv("SIDEINPUT_S3_USE_SSL"))
	return ObjectStoreConfig{
		Endpoint:  os.Getenv("SIDEINPUT_S3_ENDPOINT"),
		AccessKey: os.Getenv("SIDEINPUT_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("SIDEINPUT_S3_SECRET_KEY"),
		UseSSL:    useSSL,
	}
}

func openObject(ctx context.Context, cfg ObjectStoreConfig, c Candidate) (io.ReadCloser, error) {
	if cfg.Endpoint == "" {
		return nil, errors.Errorf("object store endpoint is required for %s", c)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create object store client")
	}
	obj, err := client.GetObject(ctx, c.Host, c.Path, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", c)
	}
	// GetObject is lazy; Stat surfaces a missing key before the first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errors.Wrapf(ErrMissing, "%s", c)
		}
		return nil, errors.Wrapf(err, "stat %s", c)
	}
	return obj, nil
}
