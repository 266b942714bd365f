package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gestaozabele/midia/internal/auth"
	"github.com/gestaozabele/midia/internal/config"
	"github.com/gestaozabele/midia/internal/storage"
)

const testSecret = "segredo-de-teste-com-32-caracteres!!"

// pngBytes carrega a assinatura PNG para o sniff de content-type.
var pngBytes = append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0x00}, 16)...)

type stubUploader struct {
	result *storage.UploadResult
	err    error
	last   *storage.UploadInput
}

func (s *stubUploader) Upload(ctx context.Context, input storage.UploadInput) (*storage.UploadResult, error) {
	s.last = &input
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Port:           8080,
		JWTSecret:      testSecret,
		JWTAccessTTL:   time.Minute,
		UploadMaxBytes: 1 << 20,
		RateLimit:      config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}
}

func mintToken(t *testing.T, scopes []string) string {
	t.Helper()
	token, err := auth.NewManager(testSecret, time.Minute).GenerateToken("teste", scopes)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func decodeEnvelope(t *testing.T, body *bytes.Buffer) (map[string]any, map[string]any) {
	t.Helper()
	var envelope struct {
		Data  map[string]any `json:"data"`
		Error map[string]any `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		t.Fatalf("resposta não é JSON válido: %v", err)
	}
	return envelope.Data, envelope.Error
}

func TestUploadExigeToken(t *testing.T) {
	handler := NewRouter(testConfig(), &stubUploader{})

	req := httptest.NewRequest(http.MethodPost, "/v1/imagens", bytes.NewReader(pngBytes))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("esperava 401, obteve %d", rec.Code)
	}
}

func TestUploadExigeEscopo(t *testing.T) {
	handler := NewRouter(testConfig(), &stubUploader{})

	req := httptest.NewRequest(http.MethodPost, "/v1/imagens", bytes.NewReader(pngBytes))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, []string{"leitura"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("esperava 403, obteve %d", rec.Code)
	}
}

func TestUploadRejeitaNaoImagem(t *testing.T) {
	stub := &stubUploader{}
	handler := NewRouter(testConfig(), stub)

	req := httptest.NewRequest(http.MethodPost, "/v1/imagens", strings.NewReader("apenas texto"))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, []string{"upload"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("esperava 400, obteve %d", rec.Code)
	}
	if stub.last != nil {
		t.Fatal("uploader não deveria ser chamado para payload não-imagem")
	}
}

func TestUploadCorpoBruto(t *testing.T) {
	stub := &stubUploader{result: &storage.UploadResult{URL: "https://raw.example/logos/a.png", SHA: "abc"}}
	handler := NewRouter(testConfig(), stub)

	req := httptest.NewRequest(http.MethodPost, "/v1/imagens?caminho=/logos/a.png", bytes.NewReader(pngBytes))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, []string{"upload"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("esperava 201, obteve %d: %s", rec.Code, rec.Body.String())
	}

	data, _ := decodeEnvelope(t, rec.Body)
	if data["url"] != "https://raw.example/logos/a.png" {
		t.Fatalf("url inesperada: %v", data["url"])
	}
	if data["caminho"] != "logos/a.png" {
		t.Fatalf("caminho inesperado: %v", data["caminho"])
	}

	if stub.last == nil {
		t.Fatal("uploader não foi chamado")
	}
	if stub.last.Key != "logos/a.png" {
		t.Fatalf("chave inesperada: %s", stub.last.Key)
	}
	if stub.last.ContentType != "image/png" {
		t.Fatalf("content-type inesperado: %s", stub.last.ContentType)
	}
	if !strings.Contains(stub.last.Message, "teste") {
		t.Fatalf("mensagem deveria citar o subject, obteve %q", stub.last.Message)
	}
}

func TestUploadMultipart(t *testing.T) {
	stub := &stubUploader{result: &storage.UploadResult{URL: "https://raw.example/imagens/logo.png"}}
	handler := NewRouter(testConfig(), stub)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("arquivo", "logo.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(pngBytes); err != nil {
		t.Fatalf("escrevendo parte: %v", err)
	}
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/imagens", &buf)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, []string{"upload"}))
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("esperava 201, obteve %d: %s", rec.Code, rec.Body.String())
	}
	if stub.last == nil || stub.last.Key != "imagens/logo.png" {
		t.Fatalf("chave inesperada: %+v", stub.last)
	}
}

func TestUploadGeraChaveQuandoSemCaminho(t *testing.T) {
	stub := &stubUploader{result: &storage.UploadResult{URL: "https://raw.example/x.png"}}
	handler := NewRouter(testConfig(), stub)

	req := httptest.NewRequest(http.MethodPost, "/v1/imagens", bytes.NewReader(pngBytes))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, []string{"upload"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("esperava 201, obteve %d", rec.Code)
	}
	if stub.last == nil {
		t.Fatal("uploader não foi chamado")
	}
	if !strings.HasPrefix(stub.last.Key, "imagens/") || !strings.HasSuffix(stub.last.Key, ".png") {
		t.Fatalf("chave gerada inesperada: %s", stub.last.Key)
	}
}

func TestUploadMapeiaErroRemoto(t *testing.T) {
	stub := &stubUploader{err: &storage.WriteError{Status: 422, Body: "sha faltando"}}
	handler := NewRouter(testConfig(), stub)

	req := httptest.NewRequest(http.MethodPost, "/v1/imagens", bytes.NewReader(pngBytes))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, []string{"upload"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("esperava 502, obteve %d", rec.Code)
	}

	_, errBody := decodeEnvelope(t, rec.Body)
	if errBody["code"] != "UPSTREAM" {
		t.Fatalf("código inesperado: %v", errBody["code"])
	}
	details, _ := errBody["details"].(map[string]any)
	if details["status"] != float64(422) || details["body"] != "sha faltando" {
		t.Fatalf("detalhes inesperados: %v", errBody["details"])
	}
}

func TestUploadMapeiaRespostaInvalida(t *testing.T) {
	stub := &stubUploader{err: storage.ErrRespostaInvalida}
	handler := NewRouter(testConfig(), stub)

	req := httptest.NewRequest(http.MethodPost, "/v1/imagens", bytes.NewReader(pngBytes))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, []string{"upload"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("esperava 502, obteve %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	handler := NewRouter(testConfig(), &stubUploader{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("esperava 200, obteve %d", rec.Code)
	}
}
