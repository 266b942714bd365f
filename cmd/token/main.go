package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/gestaozabele/midia/internal/auth"
)

// Gera um token de serviço para clientes de publicação. O segredo vem de
// JWT_SECRET, o mesmo usado pela API.
func main() {
	subject := flag.String("sub", "", "identificador do cliente (obrigatório)")
	scopes := flag.String("scopes", "upload", "escopos separados por vírgula")
	ttl := flag.Duration("ttl", 24*time.Hour, "validade do token")
	flag.Parse()

	if strings.TrimSpace(*subject) == "" {
		fmt.Fprintln(os.Stderr, "usage: token -sub <cliente> [-scopes upload] [-ttl 24h]")
		os.Exit(1)
	}

	_ = godotenv.Load()

	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if len(secret) < 32 {
		fmt.Fprintln(os.Stderr, "JWT_SECRET deve ter pelo menos 32 caracteres")
		os.Exit(1)
	}

	var parsed []string
	for _, scope := range strings.Split(*scopes, ",") {
		scope = strings.TrimSpace(scope)
		if scope != "" {
			parsed = append(parsed, scope)
		}
	}

	manager := auth.NewManager(secret, *ttl)
	token, err := manager.GenerateToken(*subject, parsed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "falha ao gerar token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
