package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultGitHubAPIBase = "https://api.github.com"
const defaultGitHubBranch = "main"

// GitHubConfig descreve credenciais e destino no repositório de mídia.
type GitHubConfig struct {
	Token      string
	Repo       string // formato dono/nome
	Branch     string
	APIBase    string
	HTTPClient *http.Client
}

// GitHubUploader publica arquivos via API de conteúdo do GitHub. O repositório
// alvo serve de CDN: a URL devolvida é a de download público do arquivo.
type GitHubUploader struct {
	cfg    GitHubConfig
	client *http.Client
}

// NewGitHubUploader valida a configuração e devolve o uploader pronto.
// Token e repositório são obrigatórios; branch assume "main" quando vazia.
func NewGitHubUploader(cfg GitHubConfig) (*GitHubUploader, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("%w: token do GitHub ausente", ErrConfiguracao)
	}

	repo := strings.Trim(strings.TrimSpace(cfg.Repo), "/")
	if repo == "" {
		return nil, fmt.Errorf("%w: repositório ausente", ErrConfiguracao)
	}
	if parts := strings.Split(repo, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: repositório deve ter formato dono/nome", ErrConfiguracao)
	}
	cfg.Repo = repo

	if strings.TrimSpace(cfg.Branch) == "" {
		cfg.Branch = defaultGitHubBranch
	}

	base := strings.TrimSpace(cfg.APIBase)
	if base == "" {
		base = defaultGitHubAPIBase
	}
	cfg.APIBase = strings.TrimRight(base, "/")

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	return &GitHubUploader{cfg: cfg, client: client}, nil
}

// Upload grava o arquivo no repositório e devolve a URL pública de download.
// A sequência é sondagem seguida de escrita: a sondagem recupera o SHA atual
// do arquivo (necessário para sobrescrever) e é tolerante a falhas — qualquer
// erro vira "arquivo inexistente". Não há retry nem tratamento de rate limit.
func (u *GitHubUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if strings.TrimSpace(input.Key) == "" {
		return nil, errors.New("storage: chave do objeto obrigatória")
	}
	if len(input.Body) == 0 {
		return nil, errors.New("storage: corpo vazio")
	}

	endpoint := u.contentsURL(input.Key)
	sha := u.probeSHA(ctx, endpoint)

	message := strings.TrimSpace(input.Message)
	if message == "" {
		message = fmt.Sprintf("midia: publica %s", input.Key)
	}

	payload := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(input.Body),
		"branch":  u.cfg.Branch,
	}
	if sha != "" {
		payload["sha"] = sha
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	u.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &WriteError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var parsed struct {
		Content struct {
			DownloadURL string `json:"download_url"`
			SHA         string `json:"sha"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRespostaInvalida, err)
	}
	if strings.TrimSpace(parsed.Content.DownloadURL) == "" {
		return nil, ErrRespostaInvalida
	}

	return &UploadResult{URL: parsed.Content.DownloadURL, SHA: parsed.Content.SHA}, nil
}

// probeSHA consulta o arquivo atual no destino. Qualquer falha (rede, 404,
// JSON malformado) é absorvida e tratada como arquivo inexistente.
func (u *GitHubUploader) probeSHA(ctx context.Context, endpoint string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ""
	}
	u.setHeaders(req)

	resp, err := u.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ""
	}

	var parsed struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ""
	}
	return parsed.SHA
}

func (u *GitHubUploader) contentsURL(key string) string {
	escaped := (&url.URL{Path: strings.TrimLeft(key, "/")}).EscapedPath()
	return fmt.Sprintf("%s/repos/%s/contents/%s", u.cfg.APIBase, u.cfg.Repo, escaped)
}

func (u *GitHubUploader) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+u.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
}
