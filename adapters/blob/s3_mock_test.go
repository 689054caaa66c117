package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

// newMockS3 returns an S3 store whose client talks to an in-memory fake of
// the handful of object operations the store uses.
func newMockS3(t *testing.T) *S3 {
	t.Helper()
	rt := &mockS3{objects: map[string]mockObject{}}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return NewS3WithClient(client, "artifacts")
}

type mockObject struct {
	body        []byte
	contentType string
}

type mockS3 struct {
	mu      sync.Mutex
	objects map[string]mockObject
}

func response(status int, body []byte, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(body)), Header: header, ContentLength: int64(len(body))}
}

func (m *mockS3) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range m.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2025-01-01T00:00:00Z</LastModified></Contents>", k, len(m.objects[k].body))
		}
		b.WriteString("</ListBucketResult>")
		return response(http.StatusOK, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}}), nil
	}

	obj, exists := m.objects[key]
	objectHeader := func() http.Header {
		return http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"Etag":           {`"etag-` + key + `"`},
			"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
		}
	}

	switch req.Method {
	case http.MethodHead:
		if !exists {
			return response(http.StatusNotFound, nil, nil), nil
		}
		r := response(http.StatusOK, nil, objectHeader())
		r.ContentLength = int64(len(obj.body))
		return r, nil
	case http.MethodGet:
		if !exists {
			return response(http.StatusNotFound, []byte(`<Error><Code>NoSuchKey</Code></Error>`), http.Header{"Content-Type": {"application/xml"}}), nil
		}
		return response(http.StatusOK, obj.body, objectHeader()), nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		m.objects[key] = mockObject{body: body, contentType: req.Header.Get("Content-Type")}
		return response(http.StatusOK, nil, http.Header{"Etag": {`"etag-` + key + `"`}}), nil
	case http.MethodDelete:
		delete(m.objects, key)
		return response(http.StatusNoContent, nil, nil), nil
	}
	return response(http.StatusNotImplemented, nil, nil), nil
}

// decodeChunked unwraps a single-chunk aws-chunked payload.
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 || parts[2] != "0" && !strings.HasPrefix(parts[2], "0;") {
		return nil, false
	}
	size, err := strconv.ParseInt(strings.SplitN(parts[0], ";", 2)[0], 16, 64)
	if err != nil || int64(len(parts[1])) != size {
		return nil, false
	}
	return []byte(parts[1]), true
}
