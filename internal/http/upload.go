package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	httpmiddleware "github.com/gestaozabele/midia/internal/http/middleware"
	"github.com/gestaozabele/midia/internal/storage"
)

// uploadResponse descreve o artefato publicado.
type uploadResponse struct {
	URL     string `json:"url"`
	Caminho string `json:"caminho"`
	SHA     string `json:"sha,omitempty"`
}

// UploadImagem recebe uma imagem (multipart ou corpo bruto) e publica no
// backend configurado, devolvendo a URL pública.
func (h *Handler) UploadImagem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.UploadMaxBytes)

	body, caminho, err := readImagem(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	contentType := http.DetectContentType(body)
	if !strings.HasPrefix(contentType, "image/") {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "apenas imagens são aceitas", map[string]string{
			"content_type": contentType,
		})
		return
	}

	key := normalizeKey(caminho)
	if key == "" {
		key = fmt.Sprintf("imagens/%s%s", uuid.NewString(), extensionFor(contentType))
	}

	subject := httpmiddleware.GetSubject(r.Context())
	result, err := h.storage.Upload(r.Context(), storage.UploadInput{
		Key:         key,
		Body:        body,
		ContentType: contentType,
		Message:     fmt.Sprintf("midia: publica %s (via %s)", key, subject),
	})
	if err != nil {
		writeUploadError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, uploadResponse{
		URL:     result.URL,
		Caminho: key,
		SHA:     result.SHA,
	})
}

// readImagem extrai o binário e o caminho opcional da requisição. Aceita
// multipart (campos "arquivo" e "caminho") ou corpo bruto com ?caminho=.
func readImagem(r *http.Request) ([]byte, string, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := r.FormFile("arquivo")
		if err != nil {
			return nil, "", errors.New("campo arquivo ausente ou inválido")
		}
		defer file.Close()

		body, err := io.ReadAll(file)
		if err != nil {
			return nil, "", errors.New("falha ao ler arquivo enviado")
		}
		if len(body) == 0 {
			return nil, "", errors.New("arquivo vazio")
		}

		caminho := r.FormValue("caminho")
		if caminho == "" && header != nil {
			caminho = headerFilename(header.Filename)
		}
		return body, caminho, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", errors.New("corpo da requisição excede o limite ou é ilegível")
	}
	if len(body) == 0 {
		return nil, "", errors.New("corpo vazio")
	}
	return body, r.URL.Query().Get("caminho"), nil
}

// headerFilename aproveita o nome original do arquivo dentro da pasta padrão.
func headerFilename(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return ""
	}
	return "imagens/" + name
}

func normalizeKey(caminho string) string {
	key := strings.Trim(strings.TrimSpace(caminho), "/")
	if key == "" {
		return ""
	}
	// evita traversal e segmentos vazios no caminho do repositório
	parts := strings.Split(key, "/")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || part == "." || part == ".." {
			continue
		}
		clean = append(clean, part)
	}
	return strings.Join(clean, "/")
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	default:
		return ".bin"
	}
}

func writeUploadError(w http.ResponseWriter, err error) {
	var writeErr *storage.WriteError
	switch {
	case errors.As(err, &writeErr):
		WriteError(w, http.StatusBadGateway, "UPSTREAM", "escrita no repositório remoto falhou", map[string]any{
			"status": writeErr.Status,
			"body":   writeErr.Body,
		})
	case errors.Is(err, storage.ErrRespostaInvalida):
		WriteError(w, http.StatusBadGateway, "UPSTREAM", "resposta inesperada do repositório remoto", nil)
	case errors.Is(err, storage.ErrConfiguracao):
		WriteError(w, http.StatusServiceUnavailable, "CONFIG", "backend de mídia não configurado", nil)
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "falha ao publicar imagem", nil)
	}
}
