// Package storage verifica que las referencias de evidencia existan en el
// almacenamiento de objetos.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jhoicas/lotledger/internal/application/inventory"
	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/pkg/config"
)

var _ inventory.EvidenceVerifier = (*S3Verifier)(nil)

// HeadObjectAPI la parte del cliente S3 que se usa.
type HeadObjectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Verifier comprueba la evidencia con HeadObject. Compatible con MinIO y similares.
type S3Verifier struct {
	client HeadObjectAPI
	bucket string
}

// NewS3Verifier construye el cliente S3 desde la configuración.
func NewS3Verifier(ctx context.Context, cfg config.StorageConfig) (*S3Verifier, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: bucket requerido")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3VerifierWithClient(client, cfg.Bucket), nil
}

// NewS3VerifierWithClient usa un cliente ya construido.
func NewS3VerifierWithClient(client HeadObjectAPI, bucket string) *S3Verifier {
	return &S3Verifier{client: client, bucket: bucket}
}

// Verify acepta "s3://bucket/clave" o solo "clave" (bucket configurado).
// Objeto inexistente: *domain.NotFoundError.
func (v *S3Verifier) Verify(ctx context.Context, reference string) error {
	bucket, key, err := ParseReference(reference, v.bucket)
	if err != nil {
		return err
	}
	_, err = v.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		var nf *types.NotFound
		var nsk *types.NoSuchKey
		if errors.As(err, &nf) || errors.As(err, &nsk) {
			return domain.NewNotFound("evidencia", reference)
		}
		return fmt.Errorf("head object: %w", err)
	}
	return nil
}

// ParseReference separa bucket y clave de una referencia de evidencia.
func ParseReference(reference, defaultBucket string) (bucket, key string, err error) {
	ref := strings.TrimSpace(reference)
	if rest, ok := strings.CutPrefix(ref, "s3://"); ok {
		bucket, key, _ = strings.Cut(rest, "/")
	} else {
		bucket, key = defaultBucket, strings.TrimPrefix(ref, "/")
	}
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: referencia de evidencia %q mal formada", domain.ErrInvalidInput, reference)
	}
	return bucket, key, nil
}

// StubVerifier acepta cualquier referencia no vacía (sin almacenamiento configurado).
type StubVerifier struct{}

func (StubVerifier) Verify(_ context.Context, reference string) error {
	if strings.TrimSpace(reference) == "" {
		return fmt.Errorf("%w: referencia de evidencia vacía", domain.ErrInvalidInput)
	}
	return nil
}
