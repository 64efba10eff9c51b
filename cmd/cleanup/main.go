package main

import (
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/qs3c/review_comments/config"
	"github.com/qs3c/review_comments/internal/database"
	"github.com/qs3c/review_comments/internal/repository"
)

var (
	dryRun        = flag.Bool("dry-run", true, "Dry run mode, don't actually delete comments")
	retentionDays = flag.Int("retention-days", 0, "Days to keep soft-deleted comments (0 uses config)")
)

// 一次性清理软删除且没有回复的评论
func main() {
	flag.Parse()

	log.Println("Starting comment cleanup...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	retention := cfg.Cleanup.Retention()
	if *retentionDays > 0 {
		retention = time.Duration(*retentionDays) * 24 * time.Hour
	}
	if retention <= 0 {
		log.Fatal("Retention is not configured, refusing to purge")
	}
	before := time.Now().Add(-retention)

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	repo := repository.NewCommentRepository(db)

	log.Println(strings.Repeat("=", 60))
	if *dryRun {
		// 只列出当前这一轮可删除的叶子，父评论要等子评论删掉后才会出现
		comments, err := repo.ListPurgeable(before)
		if err != nil {
			log.Fatalf("Failed to list purgeable comments: %v", err)
		}
		for _, c := range comments {
			log.Printf("  - review %s comment #%d (deleted %s ago)", c.ReviewID, c.ID, time.Since(c.UpdatedAt).Round(time.Hour))
		}
		log.Printf("Found %d purgeable comments deleted before %s", len(comments), before.Format(time.RFC3339))
		log.Println("DRY RUN MODE - nothing was deleted, run with -dry-run=false to purge")
	} else {
		purged, err := repo.PurgeDeletedLeaves(before)
		if err != nil {
			log.Fatalf("Purge failed after %d comments: %v", purged, err)
		}
		log.Printf("Purged %d comments deleted before %s", purged, before.Format(time.RFC3339))
	}
	log.Println(strings.Repeat("=", 60))
}
