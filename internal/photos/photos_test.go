package photos

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildtrack/pkg/contracts/domain"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.NRGBA{R: 200, A: 128})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalize(t *testing.T) {
	n, err := Normalize(testPNG(t, 40, 30))
	require.NoError(t, err)

	assert.Equal(t, 40, n.Width)
	assert.Equal(t, 30, n.Height)
	assert.Equal(t, []byte{0xFF, 0xD8}, n.JPEG[:2], "expected a JPEG stream")
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	_, err := Normalize([]byte("definitely not an image"))
	assert.Error(t, err)
}

func TestHTTPFetcher(t *testing.T) {
	payload := testPNG(t, 4, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(payload)
		case "/big.png":
			_, _ = w.Write(bytes.Repeat([]byte{1}, 64))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, 32)
	f.maxBytes = int64(len(payload))

	data, err := f.Fetch(context.Background(), domain.PhotoRef{ID: "1", PublicURL: srv.URL + "/ok.png"})
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	f.maxBytes = 32
	_, err = f.Fetch(context.Background(), domain.PhotoRef{ID: "2", PublicURL: srv.URL + "/big.png"})
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = f.Fetch(context.Background(), domain.PhotoRef{ID: "3", PublicURL: srv.URL + "/missing.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = f.Fetch(context.Background(), domain.PhotoRef{ID: "4"})
	assert.ErrorIs(t, err, ErrNoSource)
}

type fakeObjects struct {
	objects map[string][]byte
	gotKey  string
	bucket  string
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gotKey = aws.ToString(in.Key)
	f.bucket = aws.ToString(in.Bucket)
	data, ok := f.objects[f.gotKey]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func TestS3Fetcher(t *testing.T) {
	objects := &fakeObjects{objects: map[string][]byte{"dpr/r1/site.jpg": []byte("jpeg-bytes")}}
	f := NewS3FetcherWithClient(objects, "dpr-photos", 0)

	data, err := f.Fetch(context.Background(), domain.PhotoRef{StoragePath: "/dpr/r1/site.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, "dpr/r1/site.jpg", objects.gotKey)
	assert.Equal(t, "dpr-photos", objects.bucket)

	small := NewS3FetcherWithClient(objects, "dpr-photos", 4)
	_, err = small.Fetch(context.Background(), domain.PhotoRef{StoragePath: "dpr/r1/site.jpg"})
	assert.ErrorIs(t, err, ErrTooLarge)
}

type funcFetcher func(ctx context.Context, ref domain.PhotoRef) ([]byte, error)

func (f funcFetcher) Fetch(ctx context.Context, ref domain.PhotoRef) ([]byte, error) { return f(ctx, ref) }

func TestChainFallsBackToPublicURL(t *testing.T) {
	storage := funcFetcher(func(context.Context, domain.PhotoRef) ([]byte, error) { return nil, errors.New("storage down") })
	public := funcFetcher(func(_ context.Context, ref domain.PhotoRef) ([]byte, error) { return []byte(ref.PublicURL), nil })
	chain := Chain{Storage: storage, Public: public}

	data, err := chain.Fetch(context.Background(), domain.PhotoRef{StoragePath: "a.jpg", PublicURL: "https://cdn/a.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/a.jpg", string(data))

	_, err = chain.Fetch(context.Background(), domain.PhotoRef{StoragePath: "a.jpg"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "storage down"))

	_, err = chain.Fetch(context.Background(), domain.PhotoRef{})
	assert.ErrorIs(t, err, ErrNoSource)
}
