package content

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/tridenttech/trident-web/internal/cryptoutil"
	"github.com/tridenttech/trident-web/internal/log"
	"github.com/tridenttech/trident-web/internal/xerrors"
)

// maxSignatureSize bounds the detached .sig object.
const maxSignatureSize = 16 << 10

// ParameterGetter is the SSM call the loader needs.
type ParameterGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ObjectGetter is the S3 call the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Verifier checks a detached signature over a bundle.
type Verifier interface {
	Verify(ctx context.Context, message, signature []byte) error
	KeyID() string
}

type LoaderOptions struct {
	Logger log.Logger

	// SSMParam holds the hex SHA-256 of the bundle to serve.
	SSMParam string

	// Bundles live at s3://{S3Bucket}/{S3Prefix}/{hash}.tar.gz, with an
	// optional base64 signature next to them at {hash}.tar.gz.sig.
	S3Bucket string
	S3Prefix string

	Limits Limits

	// Verifier, when set, makes the signature mandatory.
	Verifier Verifier

	// Clients default to ones built from AWSConfig, or the default AWS
	// config chain when that is nil too.
	SSM       ParameterGetter
	S3        ObjectGetter
	AWSConfig *aws.Config
}

type Loader struct {
	opts   LoaderOptions
	ssm    ParameterGetter
	s3     ObjectGetter
	logger log.Logger
}

func NewLoader(ctx context.Context, opts LoaderOptions) (*Loader, error) {
	if opts.SSMParam == "" {
		return nil, xerrors.New("content loader: SSMParam is required")
	}
	if opts.S3Bucket == "" {
		return nil, xerrors.New("content loader: S3Bucket is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	opts.S3Prefix = strings.Trim(opts.S3Prefix, "/")
	opts.Limits = opts.Limits.withDefaults()

	if opts.SSM == nil || opts.S3 == nil {
		var awsCfg aws.Config
		if opts.AWSConfig != nil {
			awsCfg = *opts.AWSConfig
		} else {
			var err error
			if awsCfg, err = config.LoadDefaultConfig(ctx); err != nil {
				return nil, xerrors.Wrap(err, "load AWS config")
			}
		}
		if opts.SSM == nil {
			opts.SSM = ssm.NewFromConfig(awsCfg)
		}
		if opts.S3 == nil {
			opts.S3 = s3.NewFromConfig(awsCfg)
		}
	}

	return &Loader{opts: opts, ssm: opts.SSM, s3: opts.S3, logger: opts.Logger}, nil
}

// CurrentHash reads the published bundle digest from SSM.
func (l *Loader) CurrentHash(ctx context.Context) (string, error) {
	out, err := l.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(l.opts.SSMParam),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get SSM parameter %s", l.opts.SSMParam)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("SSM parameter %s has no value", l.opts.SSMParam)
	}

	hash := strings.ToLower(strings.TrimSpace(*out.Parameter.Value))
	if !cryptoutil.ValidSHA256Hex(hash) {
		return "", xerrors.Newf("SSM parameter %s is not a SHA-256 digest", l.opts.SSMParam)
	}
	return hash, nil
}

func (l *Loader) bundleKey(hash string) string {
	if l.opts.S3Prefix != "" {
		return l.opts.S3Prefix + "/" + hash + ".tar.gz"
	}
	return hash + ".tar.gz"
}

func (l *Loader) fetch(ctx context.Context, key string, maxSize int64) ([]byte, string, error) {
	out, err := l.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.opts.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", xerrors.Wrapf(err, "get s3://%s/%s", l.opts.S3Bucket, key)
	}
	defer out.Body.Close()

	data, sum, err := readWithHash(out.Body, maxSize)
	if err != nil {
		return nil, "", xerrors.Wrapf(err, "read s3://%s/%s", l.opts.S3Bucket, key)
	}
	return data, sum, nil
}

// Load fetches, checks and extracts the bundle currently published in SSM.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	hash, err := l.CurrentHash(ctx)
	if err != nil {
		return nil, err
	}
	return l.LoadHash(ctx, hash)
}

// LoadHash fetches the bundle with the given digest.
func (l *Loader) LoadHash(ctx context.Context, hash string) (*Snapshot, error) {
	key := l.bundleKey(hash)
	l.logger.Info(ctx, "downloading content bundle",
		"bucket", l.opts.S3Bucket,
		"key", key,
		"expected_hash", hash,
	)

	data, actual, err := l.fetch(ctx, key, l.opts.Limits.MaxBundle)
	if err != nil {
		return nil, err
	}
	if !cryptoutil.HashEqual(actual, hash) {
		return nil, xerrors.Newf("bundle checksum mismatch: expected %s, got %s", hash, actual)
	}

	var keyID string
	if l.opts.Verifier != nil {
		if err := l.verify(ctx, key, data); err != nil {
			return nil, err
		}
		keyID = l.opts.Verifier.KeyID()
	}

	fsys, err := extractTarGz(data, l.opts.Limits)
	if err != nil {
		return nil, xerrors.Wrap(err, "extract bundle")
	}

	now := time.Now().UTC()
	snap := &Snapshot{
		FS: fsys,
		Meta: Meta{
			Version:    versionOf(fsys, hash),
			Hash:       hash,
			Source:     SourceS3,
			VerifiedAt: now,
			KeyID:      keyID,
		},
		LoadedAt: now,
	}
	l.logger.Info(ctx, "loaded content bundle",
		"hash", hash,
		"version", snap.Meta.Version,
		"bytes", len(data),
		"files", len(fsys),
		"signed", snap.Meta.Signed(),
	)
	return snap, nil
}

func (l *Loader) verify(ctx context.Context, bundleKey string, data []byte) error {
	raw, _, err := l.fetch(ctx, bundleKey+".sig", maxSignatureSize)
	if err != nil {
		return xerrors.Wrap(err, "bundle signature")
	}
	sig := decodeSignature(raw)
	if err := l.opts.Verifier.Verify(ctx, data, sig); err != nil {
		return xerrors.Wrapf(err, "verify bundle signature with %s", l.opts.Verifier.KeyID())
	}
	return nil
}

// decodeSignature accepts base64 text, falling back to raw bytes for
// signatures uploaded straight from kms sign output.
func decodeSignature(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if sig, err := base64.StdEncoding.DecodeString(string(trimmed)); err == nil && len(sig) > 0 {
		return sig
	}
	return raw
}
