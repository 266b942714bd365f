package storage

import (
	"context"
	"errors"
	"fmt"
)

// UploadInput representa uma operação de publicação simples.
type UploadInput struct {
	Key         string
	Body        []byte
	ContentType string
	Message     string
}

// UploadResult descreve o artefato publicado. SHA carrega o identificador
// de revisão devolvido pelo backend (hash de conteúdo no GitHub, ETag no S3).
type UploadResult struct {
	URL string
	SHA string
}

// Uploader define comportamento básico para publicar blobs.
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
}

// ErrConfiguracao sinaliza configuração obrigatória ausente ou malformada.
// É devolvido antes de qualquer chamada de rede.
var ErrConfiguracao = errors.New("storage: configuração inválida")

// ErrRespostaInvalida sinaliza resposta de sucesso sem a URL pública esperada.
var ErrRespostaInvalida = errors.New("storage: resposta sem URL de download")

// WriteError descreve falha na escrita remota, preservando status e corpo
// brutos para diagnóstico.
type WriteError struct {
	Status int
	Body   string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("storage: escrita remota falhou (%d): %s", e.Status, e.Body)
}
