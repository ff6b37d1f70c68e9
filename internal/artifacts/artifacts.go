// Package artifacts uploads generated plans, images and audio to S3.
package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PCMContentType describes the raw speech the speech backends return.
const PCMContentType = "audio/L16; rate=24000; channels=1"

// PutObjectAPI is the part of the S3 client the store needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Object is an uploaded artifact.
type Object struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Store writes artifacts into one bucket and builds their public URLs.
type Store struct {
	client  PutObjectAPI
	bucket  string
	baseURL string
}

// New creates a store. baseURL is the CDN or bucket URL objects are served
// from; when empty, URLs use the s3:// scheme.
func New(client PutObjectAPI, bucket, baseURL string) *Store {
	return &Store{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}
}

func PlanKey(id string) string  { return "plans/" + id + ".json" }
func ImageKey(id string) string { return "images/" + id + ".png" }

// AudioKey returns the key for audio in format ext ("pcm" or "mp3").
func AudioKey(id, ext string) string { return "audio/" + id + "." + ext }

// URL returns the public URL of key.
func (s *Store) URL(key string) string {
	if s.baseURL == "" {
		return "s3://" + s.bucket + "/" + key
	}
	return s.baseURL + "/" + key
}

// Put uploads body under key.
func (s *Store) Put(ctx context.Context, key, contentType string, body []byte) (Object, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return Object{}, fmt.Errorf("upload %s to s3: %w", key, err)
	}
	return Object{Key: key, URL: s.URL(key), Size: int64(len(body))}, nil
}

// PutFile uploads the file at p under key, typing it by extension.
func (s *Store) PutFile(ctx context.Context, key, p string) (Object, error) {
	f, err := os.Open(p)
	if err != nil {
		return Object{}, fmt.Errorf("open %s: %w", p, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Object{}, fmt.Errorf("stat %s: %w", p, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          f,
		ContentType:   aws.String(ContentType(p)),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return Object{}, fmt.Errorf("upload %s to s3: %w", key, err)
	}
	return Object{Key: key, URL: s.URL(key), Size: info.Size()}, nil
}

// PublishDir uploads every regular file in dir (not recursive) under prefix,
// in name order.
func (s *Store) PublishDir(ctx context.Context, prefix, dir string) ([]Object, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []Object
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		obj, err := s.PutFile(ctx, path.Join(prefix, e.Name()), filepath.Join(dir, e.Name()))
		if err != nil {
			return out, err
		}
		out = append(out, obj)
	}
	return out, nil
}

// ContentType maps an artifact file name to its MIME type.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".pcm":
		return PCMContentType
	case ".json":
		return "application/json"
	case ".mp3":
		return "audio/mpeg"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
