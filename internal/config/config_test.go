package config

import (
	"strings"
	"testing"
)

const testSecret = "segredo-de-teste-com-32-caracteres!!"

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PORT", "8080")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("STORAGE_PROVIDER", "github")
	t.Setenv("GITHUB_TOKEN", "tok")
	t.Setenv("GITHUB_REPO", "org/cdn")
	t.Setenv("GITHUB_BRANCH", "")
	t.Setenv("GITHUB_API_BASE", "")
	t.Setenv("JWT_ACCESS_TTL", "")
	t.Setenv("UPLOAD_MAX_BYTES", "")
	t.Setenv("ALLOW_ORIGINS", "")
}

func TestLoadComDefaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GITHUB_BRANCH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 8080 {
		t.Fatalf("porta inesperada: %d", cfg.Port)
	}
	if cfg.Storage.Provider != "github" {
		t.Fatalf("provider inesperado: %s", cfg.Storage.Provider)
	}
	if cfg.Storage.GitHub.Branch != "main" {
		t.Fatalf("branch padrão deveria ser main, obteve %q", cfg.Storage.GitHub.Branch)
	}
	if cfg.UploadMaxBytes != 10<<20 {
		t.Fatalf("limite padrão de upload inesperado: %d", cfg.UploadMaxBytes)
	}
}

func TestLoadBranchConfigurada(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GITHUB_BRANCH", "dev")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.GitHub.Branch != "dev" {
		t.Fatalf("branch deveria ser dev, obteve %q", cfg.Storage.GitHub.Branch)
	}
}

func TestLoadExigeTokenERepositorio(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GITHUB_TOKEN", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "GITHUB_TOKEN") {
		t.Fatalf("esperava erro de GITHUB_TOKEN, obteve %v", err)
	}

	setBaseEnv(t)
	t.Setenv("GITHUB_REPO", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "GITHUB_REPO") {
		t.Fatalf("esperava erro de GITHUB_REPO, obteve %v", err)
	}
}

func TestLoadExigeSegredoForte(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "curto")

	if _, err := Load(); err == nil {
		t.Fatal("segredo curto deveria falhar")
	}
}

func TestLoadProviderNaoSuportado(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORAGE_PROVIDER", "ftp")

	if _, err := Load(); err == nil {
		t.Fatal("provider desconhecido deveria falhar")
	}
}

func TestLoadProviderS3(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORAGE_PROVIDER", "r2")
	t.Setenv("S3_ENDPOINT", "https://contas.r2.example")
	t.Setenv("S3_REGION", "auto")
	t.Setenv("S3_BUCKET", "midia")
	t.Setenv("S3_ACCESS_KEY", "ak")
	t.Setenv("S3_SECRET_KEY", "sk")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.S3.Bucket != "midia" {
		t.Fatalf("bucket inesperado: %s", cfg.Storage.S3.Bucket)
	}
}
