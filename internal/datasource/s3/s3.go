// Package s3 implements datasource.Objects on Amazon S3 (and S3-compatible
// endpoints) and registers the "s3" scheme. s3a:// and s3n:// URLs are
// accepted as aliases.
//
// URL form: s3://bucket/prefix?region=us-west-2&endpoint=http://minio:9000
// Credentials come from the default AWS chain (environment, shared config,
// instance role).
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"

	"songwarehouse/internal/datasource"
)

// DefaultRegion is used when neither the URL nor AWS_REGION names one.
const DefaultRegion = "us-west-2"

// deleteBatch is the DeleteObjects limit.
const deleteBatch = 1000

var errAborted = errors.New("s3: upload aborted")

func init() {
	datasource.Register("s3", open)
}

func open(_ context.Context, u *url.URL) (datasource.Store, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("s3: missing bucket in %s", u.Redacted())
	}
	cfg := aws.NewConfig().WithRegion(region(u))
	if ep := u.Query().Get("endpoint"); ep != "" {
		cfg = cfg.WithEndpoint(ep).WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *cfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: new session: %w", err)
	}
	client := s3.New(sess)
	obj := New(client, s3manager.NewUploaderWithClient(client), u.Host)

	root := url.URL{Scheme: "s3", Host: u.Host, Path: u.Path}
	return datasource.NewObjectStore(obj, u.Path, root.String()), nil
}

func region(u *url.URL) string {
	if r := u.Query().Get("region"); r != "" {
		return r
	}
	if r := os.Getenv("AWS_REGION"); r != "" {
		return r
	}
	if r := os.Getenv("AWS_DEFAULT_REGION"); r != "" {
		return r
	}
	return DefaultRegion
}

// Bucket is one S3 bucket.
type Bucket struct {
	api    s3iface.S3API
	up     s3manageriface.UploaderAPI
	bucket string
}

// New wraps an S3 client and uploader for bucket.
func New(api s3iface.S3API, up s3manageriface.UploaderAPI, bucket string) *Bucket {
	return &Bucket{api: api, up: up, bucket: bucket}
}

func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := b.api.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, o := range page.Contents {
			keys = append(keys, aws.StringValue(o.Key))
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("s3: list s3://%s/%s: %w", b.bucket, prefix, err)
	}
	return keys, nil
}

func (b *Bucket) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := b.api.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: get s3://%s/%s: %w", b.bucket, key, err)
	}
	return out.Body, nil
}

// Put streams the object through the multipart uploader. The upload
// completes when the returned writer is closed.
func (b *Bucket) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, err := b.up.UploadWithContext(ctx, &s3manager.UploadInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		pr.CloseWithError(err)
		done <- err
	}()
	return &upload{pw: pw, done: done, key: key, bucket: b.bucket}, nil
}

type upload struct {
	pw     *io.PipeWriter
	done   chan error
	bucket string
	key    string
}

func (u *upload) Write(p []byte) (int, error) { return u.pw.Write(p) }

// Abort fails the body reader, so the uploader abandons the multipart
// upload instead of completing a truncated object.
func (u *upload) Abort(cause error) error {
	if cause == nil {
		cause = errAborted
	}
	_ = u.pw.CloseWithError(cause)
	<-u.done
	return nil
}

func (u *upload) Close() error {
	if err := u.pw.Close(); err != nil {
		return err
	}
	if err := <-u.done; err != nil {
		return fmt.Errorf("s3: put s3://%s/%s: %w", u.bucket, u.key, err)
	}
	return nil
}

func (b *Bucket) Copy(ctx context.Context, src, dst string) error {
	_, err := b.api.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(b.bucket),
		CopySource: aws.String((&url.URL{Path: b.bucket + "/" + src}).EscapedPath()),
		Key:        aws.String(dst),
	})
	if err != nil {
		return fmt.Errorf("s3: copy %s -> %s: %w", src, dst, err)
	}
	return nil
}

func (b *Bucket) Delete(ctx context.Context, keys ...string) error {
	for len(keys) > 0 {
		n := min(len(keys), deleteBatch)
		ids := make([]*s3.ObjectIdentifier, n)
		for i, k := range keys[:n] {
			ids[i] = &s3.ObjectIdentifier{Key: aws.String(k)}
		}
		out, err := b.api.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.bucket),
			Delete: &s3.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("s3: delete %d objects: %w", n, err)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("s3: delete %s: %s", aws.StringValue(e.Key), aws.StringValue(e.Message))
		}
		keys = keys[n:]
	}
	return nil
}
