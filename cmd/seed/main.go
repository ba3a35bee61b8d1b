package main

import (
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/database"
	"whiteboard-backend/internal/model"
)

// 개발용 시드: 테스트 계정과 샘플 보드를 만든다 (반복 실행 안전)
func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	db, err := database.ConnectDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	log.Println("🌱 Seeding database...")

	passwordHash, err := auth.HashPassword("password123")
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	var user model.User
	err = db.Where("email = ?", "test@example.com").First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = model.User{
			Email:        "test@example.com",
			Nickname:     "Test User",
			PasswordHash: &passwordHash,
		}
		if err := db.Create(&user).Error; err != nil {
			log.Fatalf("Failed to create user: %v", err)
		}
	} else if err != nil {
		log.Fatalf("Failed to query user: %v", err)
	}
	log.Printf("✅ User ready: %s", user.Email)

	// 샘플 보드 (이미 보드가 있으면 건너뜀)
	var boardCount int64
	db.Model(&model.Board{}).Where("owner_id = ?", user.ID).Count(&boardCount)
	if boardCount == 0 {
		board := model.Board{
			ID:      uuid.NewString(),
			Name:    "My First Board",
			OwnerID: user.ID,
		}
		if err := db.Create(&board).Error; err != nil {
			log.Fatalf("Failed to create board: %v", err)
		}
		log.Printf("✅ Board ready: %s (%s)", board.Name, board.ID)
	}

	log.Println("🌱 Seeding complete!")
}
