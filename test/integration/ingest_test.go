//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guided-traffic/body-ingest/internal/config"
	"github.com/guided-traffic/body-ingest/internal/server"
	"github.com/guided-traffic/body-ingest/internal/server/handlers/echo"
	"github.com/guided-traffic/body-ingest/internal/server/handlers/health"
	"github.com/guided-traffic/body-ingest/internal/server/response"
)

const integrationBodyLimit = 256 * 1024

// startServer runs a real server on a loopback port until the test ends
func startServer(tb testing.TB) string {
	tb.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(tb, err)
	addr := listener.Addr().String()
	require.NoError(tb, listener.Close())

	cfg := &config.Config{
		BindAddress:     addr,
		LogLevel:        "error",
		LogFormat:       "text",
		ShutdownTimeout: 5,
		Ingest: config.IngestConfig{
			BodyLimit:           integrationBodyLimit,
			StreamingBufferSize: 4096,
			DecodeAWSChunked:    true,
		},
	}

	srv := server.NewServer(cfg, health.BuildInfo{Version: "integration"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Start(ctx)
	}()

	tb.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(tb, err)
		case <-time.After(5 * time.Second):
			tb.Error("server shutdown timeout")
		}
	})

	baseURL := "http://" + addr
	require.Eventually(tb, func() bool {
		resp, err := http.Get(baseURL + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	return baseURL
}

func post(t *testing.T, url, contentType string, body io.Reader, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, respBody
}

// createAWSChunkedEncodedBody creates an AWS Signature V4 chunked encoded body
func createAWSChunkedEncodedBody(data string, chunkSize int) []byte {
	var buffer bytes.Buffer
	dataBytes := []byte(data)

	for offset, chunkNum := 0, 1; offset < len(dataBytes); chunkNum++ {
		actualChunkSize := chunkSize
		if remaining := len(dataBytes) - offset; remaining < chunkSize {
			actualChunkSize = remaining
		}

		fmt.Fprintf(&buffer, "%x;chunk-signature=mock-signature-chunk-%d\r\n", actualChunkSize, chunkNum)
		buffer.Write(dataBytes[offset : offset+actualChunkSize])
		buffer.WriteString("\r\n")

		offset += actualChunkSize
	}

	buffer.WriteString("0;chunk-signature=final-mock-signature\r\n\r\n")
	return buffer.Bytes()
}

func TestIngestJSONOverTCP(t *testing.T) {
	baseURL := startServer(t)

	items := make([]string, 0, 2000)
	for i := 0; i < 2000; i++ {
		items = append(items, fmt.Sprintf(`{"id":%d}`, i))
	}
	payload := "[" + strings.Join(items, ",") + "]"

	resp, body := post(t, baseURL+"/echo", "application/json", strings.NewReader(payload), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var report echo.Report
	require.NoError(t, json.Unmarshal(body, &report))
	arr, ok := report.Body.([]any)
	require.True(t, ok)
	assert.Len(t, arr, 2000)
	assert.Equal(t, resp.Header.Get(response.HeaderRequestID), report.RequestID)
}

func TestIngestAWSChunkedJSON(t *testing.T) {
	baseURL := startServer(t)

	payload := `{"message":"` + strings.Repeat("chunked-", 1000) + `"}`
	framed := createAWSChunkedEncodedBody(payload, 1000)

	resp, body := post(t, baseURL+"/echo/objects/key", "application/json", bytes.NewReader(framed), map[string]string{
		"X-Amz-Content-Sha256": "STREAMING-AWS4-HMAC-SHA256-PAYLOAD",
		"Content-Encoding":     "aws-chunked",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var report echo.Report
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, []string{"aws-chunked"}, report.Decoders)
	assert.Equal(t, map[string]any{"message": strings.Repeat("chunked-", 1000)}, report.Body)
}

func TestIngestMultipartOverTCP(t *testing.T) {
	baseURL := startServer(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("description", "integration upload"))
	for i, size := range []int{10, 50 * 1024} {
		part, err := writer.CreateFormFile(fmt.Sprintf("file%d", i), fmt.Sprintf("file%d.bin", i))
		require.NoError(t, err)
		_, err = part.Write(bytes.Repeat([]byte{byte('a' + i)}, size))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	resp, body := post(t, baseURL+"/echo", writer.FormDataContentType(), &buf, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var report echo.Report
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, "integration upload", report.Form.Get("description"))
	require.Len(t, report.Files, 2)
	assert.Equal(t, int64(10), report.Files["file0"].Size)
	assert.Equal(t, int64(50*1024), report.Files["file1"].Size)
}

func TestIngestBodyLimitOverTCP(t *testing.T) {
	baseURL := startServer(t)

	payload := bytes.Repeat([]byte("x"), integrationBodyLimit+1024)
	resp, body := post(t, baseURL+"/echo", "application/octet-stream", bytes.NewReader(payload), nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	var errResp response.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, response.CodePayloadTooLarge, errResp.Error.Code)
}

// BenchmarkAWSChunkedIngest measures decoding plus JSON parsing of framed bodies
func BenchmarkAWSChunkedIngest(b *testing.B) {
	baseURL := startServer(b)

	payload := `{"data":"` + strings.Repeat("BENCHMARK_DATA_", 1000) + `"}`
	framed := createAWSChunkedEncodedBody(payload, 64)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req, err := http.NewRequest(http.MethodPost, baseURL+"/echo", bytes.NewReader(framed))
		if err != nil {
			b.Fatal(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Amz-Content-Sha256", "STREAMING-AWS4-HMAC-SHA256-PAYLOAD")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			b.Fatal(err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}
