package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"portfolio-backend/internal/auth"
	"portfolio-backend/internal/config"
	"portfolio-backend/internal/db"
	"portfolio-backend/internal/models"
	"portfolio-backend/internal/settings"
	"portfolio-backend/internal/utils"
)

type seedProject struct {
	Title       string
	Description string
	Tech        []string
	RepoURL     string
	Featured    bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		log.Fatal(err)
	}

	settingsRepo := settings.NewRepository(cols.AvailabilitySettings)
	if err := settingsRepo.Init(ctx, settings.Default(cfg.Timezone.String())); err != nil {
		log.Fatalf("seed settings error: %v", err)
	}

	seedProjects := []seedProject{
		{
			Title:       "Portfolio Backend",
			Description: "The API powering this site: appointment scheduling, contact inbox and content management.",
			Tech:        []string{"go", "mongodb", "redis"},
			Featured:    true,
		},
		{
			Title:       "Terminal Dotfiles",
			Description: "Shell, editor and tmux configuration kept in sync across machines.",
			Tech:        []string{"shell"},
		},
	}

	now := time.Now().In(cfg.Timezone)
	for _, p := range seedProjects {
		slug := utils.Slugify(p.Title)
		update := bson.M{
			"$setOnInsert": bson.M{
				"_id":         uuid.NewString(),
				"title":       p.Title,
				"slug":        slug,
				"description": p.Description,
				"tech":        p.Tech,
				"repoUrl":     p.RepoURL,
				"featured":    p.Featured,
				"createdAt":   now,
				"updatedAt":   now,
			},
		}
		if _, err := cols.Projects.UpdateOne(ctx, bson.M{"slug": slug}, update, options.Update().SetUpsert(true)); err != nil {
			log.Fatalf("seed project error for %s: %v", p.Title, err)
		}
	}

	snippetTitle := "Graceful shutdown"
	snippetUpdate := bson.M{
		"$setOnInsert": bson.M{
			"_id":       uuid.NewString(),
			"title":     snippetTitle,
			"language":  "go",
			"code":      "stop := make(chan os.Signal, 1)\nsignal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)\n<-stop",
			"tags":      []string{"http", "lifecycle"},
			"createdAt": now,
			"updatedAt": now,
		},
	}
	if _, err := cols.Snippets.UpdateOne(ctx, bson.M{"title": snippetTitle}, snippetUpdate, options.Update().SetUpsert(true)); err != nil {
		log.Fatalf("seed snippet error: %v", err)
	}

	username := envOrDefault("ADMIN_USER", "admin")
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		log.Printf("seed admin: ADMIN_PASSWORD missing, skipping %s", username)
	} else if err := seedAdminUser(ctx, cols, username, os.Getenv("ADMIN_EMAIL"), password, cfg.Timezone); err != nil {
		log.Fatalf("seed admin error for %s: %v", username, err)
	}

	log.Println("seed completed")
}

func seedAdminUser(ctx context.Context, cols *db.Collections, username, email, password string, loc *time.Location) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().In(loc)
	set := bson.M{
		"passwordHash": hash,
		"role":         models.UserRoleAdmin,
		"updatedAt":    now,
	}
	if email != "" {
		set["email"] = email
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":       uuid.NewString(),
			"username":  username,
			"createdAt": now,
		},
	}
	_, err = cols.Users.UpdateOne(ctx, bson.M{"username": username}, update, options.Update().SetUpsert(true))
	return err
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
