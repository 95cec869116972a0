package db

import (
	"fmt"
	"log"
	"os"

	"unilib/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func ConnectDB() *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	err = Migrate(DB)
	if err != nil {
		log.Fatal("Failed to migrate models: ", err)
	}
	log.Println("Database connected")
	return DB
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Book{},
		&models.Loan{},
		&models.Review{},
		&models.Notification{},
	); err != nil {
		return err
	}

	// 同一用户对同一本书最多一条“未归还”的借阅
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_active_per_user_book
	  ON %s (user_id, book_id)
	  WHERE status = 'active';
	`, models.LoanTable, models.LoanTable)).Error; err != nil {
		return err
	}

	// 查询当前未归还/逾期更快
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_active_due_date
	  ON %s (due_date)
	  WHERE status = 'active';
	`, models.LoanTable, models.LoanTable)).Error; err != nil {
		return err
	}

	// 库存永远在 [0, total_copies] 之内
	if err := db.Exec(fmt.Sprintf(`
	  DO $$ BEGIN
	    ALTER TABLE %s ADD CONSTRAINT %s_copies_bounds
	      CHECK (available_copies >= 0 AND available_copies <= total_copies);
	  EXCEPTION WHEN duplicate_object THEN NULL;
	  END $$;
	`, models.BookTable, models.BookTable)).Error; err != nil {
		return err
	}

	return nil
}
