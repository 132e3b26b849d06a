package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/phoebe/phoebe/internal/model"
	"github.com/phoebe/phoebe/internal/repository"
	"github.com/phoebe/phoebe/internal/service"
)

type output struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Password  string `json:"password,omitempty"`
	Generated bool   `json:"generated"`
	Created   bool   `json:"created"`
}

// noInvalidation satisfies service.PrincipalInvalidator. The script runs
// before any principal can be cached.
type noInvalidation struct{}

func (noInvalidation) InvalidatePrincipal(context.Context, string) {}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		username    = flag.String("username", "admin", "Admin username")
		email       = flag.String("email", "", "Admin email")
		password    = flag.String("password", os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"), "Admin password; generated when empty")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	out := output{Username: model.NormalizeUsername(*username), Password: *password}
	if out.Password == "" {
		out.Password, err = generatePassword()
		if err != nil {
			fmt.Fprintln(os.Stderr, "generate password:", err)
			os.Exit(1)
		}
		out.Generated = true
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	users := service.NewUserService(repo, repo, noInvalidation{}, logger)

	adminRole, err := findRole(ctx, repo, model.RoleAdmin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	user, err := ensureAdmin(ctx, repo, users, adminRole, out, *email)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	out.UserID = user.ID
	out.Created = user.CreatedAt.After(time.Now().Add(-time.Minute))
	if !out.Created {
		// Existing account keeps its password.
		out.Password, out.Generated = "", false
	}

	switch strings.ToLower(*format) {
	case "plain":
		if out.Password != "" {
			fmt.Printf("%s %s\n", out.Username, out.Password)
		} else {
			fmt.Printf("%s already exists (id %s), ADMIN role ensured\n", out.Username, out.UserID)
		}
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func findRole(ctx context.Context, repo *repository.Repository, name string) (*model.Role, error) {
	roles, err := repo.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	for _, r := range roles {
		if model.NormalizeRoleName(r.Name) == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("role %s not found; run cmd/migrate first", name)
}

func ensureAdmin(ctx context.Context, repo *repository.Repository, users *service.UserService, role *model.Role, out output, email string) (*model.User, error) {
	existing, err := repo.GetUserByUsername(ctx, out.Username)
	switch {
	case err == nil:
		ids := make([]string, 0, len(existing.Roles)+1)
		for _, r := range existing.Roles {
			if r.ID == role.ID {
				return existing, nil
			}
			ids = append(ids, r.ID)
		}
		ids = append(ids, role.ID)
		return users.UpdateUser(ctx, service.UpdateUserInput{ID: existing.ID, RoleIDs: &ids})
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	user, err := users.CreateUser(ctx, service.CreateUserInput{
		Username: out.Username,
		Password: out.Password,
		Email:    email,
		Active:   true,
		RoleIDs:  []string{role.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return user, nil
}

func generatePassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
