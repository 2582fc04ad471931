package main

import (
	"fmt"
	"log"

	"backend/internal/app/ds"
	"backend/internal/app/dsn"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Утилита для быстрой проверки содержимого базы
func main() {
	_ = godotenv.Load()

	db, err := gorm.Open(postgres.Open(dsn.FromEnv()), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	var proposals []ds.Proposal
	err = db.Find(&proposals).Error
	if err != nil {
		log.Fatal("Failed to get proposals:", err)
	}

	fmt.Println("Proposals in database:")
	for _, p := range proposals {
		runID := "NULL"
		if p.ExternalRunID != nil {
			runID = *p.ExternalRunID
		}
		fmt.Printf("ID: %d, Title: %s, AnalysisStatus: %s, RunID: %s\n", p.ID, p.Title, p.AnalysisStatus, runID)
	}

	var donations int64
	db.Model(&ds.Donation{}).Count(&donations)
	fmt.Printf("Donations: %d\n", donations)
}
