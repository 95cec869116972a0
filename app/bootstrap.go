// app/bootstrap.go
package app

import (
	"context"
	"log"

	"unilib/db"
	"unilib/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BootstrapFirstAdmin seeds an admin account from the environment so a
// fresh deployment can be administered at all. No-op once any admin
// exists or when the bootstrap credentials are unset.
func BootstrapFirstAdmin(ctx context.Context, cfg Config, repo *db.Repo) {
	if cfg.BootstrapEmail == "" || cfg.BootstrapPassword == "" {
		return
	}
	n, err := repo.CountAdmins(ctx)
	if err != nil {
		log.Printf("bootstrap admin: %v", err)
		return
	}
	if n > 0 {
		return // 已经有管理员，跳过
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.BootstrapPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("bootstrap admin: %v", err)
		return
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        cfg.BootstrapEmail,
		Name:         "Administrateur",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	if err := repo.CreateUser(ctx, u); err != nil {
		log.Printf("bootstrap admin failed: %v", err)
		return
	}
	log.Printf("[BOOTSTRAP] no admin found, created %s", cfg.BootstrapEmail)
}
