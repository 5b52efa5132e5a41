package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"

	"resumematch/scanner-web/internal/config"
	"resumematch/scanner-web/internal/models"
	"resumematch/scanner-web/internal/repositories"
	"resumematch/scanner-web/internal/services"
)

// Runs register → login → scan → save → history against BACKEND_URL.
func main() {
	log.Println("🚀 Starting smoke scan...")

	// Load configuration
	cfg := config.Load()

	tab, err := services.NewTab(
		"smoke-"+uuid.NewString(),
		repositories.NewMemoryTabStorage(),
		services.PipelineConfig{BaseURL: cfg.Backend.BaseURL, Timeout: cfg.Backend.Timeout},
		services.NewDocumentParserService(cfg.Upload.MaxFileSize),
	)
	if err != nil {
		log.Fatalf("❌ Failed to open tab: %v", err)
	}

	ctx := context.Background()
	if err := tab.Auth.Rehydrate(ctx); err != nil {
		log.Fatalf("❌ Failed to rehydrate: %v", err)
	}

	username := "smoke_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	password := "longenough1"
	resumeText := "Python, React"
	jdText := "Must-have: Python"

	steps := []struct {
		Name string
		Run  func() error
	}{
		{
			Name: "Register " + username,
			Run: func() error {
				_, err := tab.Accounts.Register(ctx, username, password)
				return err
			},
		},
		{
			Name: "Login",
			Run: func() error {
				return tab.Auth.Login(ctx, username, password)
			},
		},
		{
			Name: "Scan and save",
			Run: func() error {
				outcome, err := tab.Scans.Scan(ctx, services.ScanInput{
					Mode:       models.ScanModeText,
					ResumeText: resumeText,
					JDText:     jdText,
				})
				if err != nil {
					return err
				}
				log.Printf("   📊 Score %.2f, matched %v, missing %v",
					outcome.Result.Score, outcome.Result.MatchedSkills, outcome.Result.MissingSkills)

				if !contains(outcome.Result.MatchedSkills, "Python") {
					return fmt.Errorf("expected Python among matched skills")
				}

				_, err = tab.Scans.Save(ctx, models.SaveScanRequest{
					Mode:       outcome.Mode,
					ResumeText: outcome.ResumeText,
					JDText:     jdText,
					Result:     outcome.Result,
				})
				return err
			},
		},
		{
			Name: "History",
			Run: func() error {
				entries, err := tab.History.List(ctx, 0)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					return fmt.Errorf("history is empty")
				}
				if !strings.Contains(entries[0].ResumePreview, resumeText) {
					return fmt.Errorf("newest entry preview %q does not show the resume", entries[0].ResumePreview)
				}
				log.Printf("   📚 %d saved scan(s), newest %s", len(entries), entries[0].ID)
				return nil
			},
		},
	}

	successCount := 0
	failCount := 0

	for _, step := range steps {
		log.Printf("\n🔄 %s", step.Name)
		if err := step.Run(); err != nil {
			log.Printf("   ❌ %s", services.Friendly(err, "failed"))
			failCount++
			break
		}
		log.Printf("   ✅ Done")
		successCount++
	}

	tab.Auth.Logout(ctx)

	// Summary
	log.Println("\n" + strings.Repeat("=", 60))
	log.Printf("📊 Smoke Summary (%s):", cfg.Backend.BaseURL)
	log.Printf("   ✅ Passed: %d steps", successCount)
	log.Printf("   ❌ Failed: %d steps", failCount)
	log.Println(strings.Repeat("=", 60))

	if failCount > 0 {
		log.Println("⚠️  Smoke scan failed. Please check the logs above.")
		os.Exit(1)
	}

	log.Println("✅ Backend round trip works!")
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if strings.EqualFold(item, want) {
			return true
		}
	}
	return false
}
