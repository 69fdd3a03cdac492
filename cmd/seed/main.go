package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rentals/internal/config"
	"rentals/internal/database"
	"rentals/internal/domain"
	"rentals/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	if cfg.IsProdLike() {
		log.Fatal("refusing to seed a production database")
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	log.Info("cleaning old data")
	for _, table := range []string{"stripe_webhook_events", "notifications", "complaints", "ratings", "favorites", "bookings", "properties", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			log.Fatal("cleanup failed", zap.String("table", table), zap.Error(err))
		}
	}

	admin := mustUser(log, db, "admin@rentals.test", "admin123", "Admin", domain.RoleAdmin)

	owners := make([]domain.User, 0, 2)
	for i := 1; i <= 2; i++ {
		owners = append(owners, mustUser(log, db, fmt.Sprintf("owner%d@rentals.test", i), "owner123", fmt.Sprintf("Owner %d", i), domain.RoleOwner))
	}
	renters := make([]domain.User, 0, 3)
	for i := 1; i <= 3; i++ {
		renters = append(renters, mustUser(log, db, fmt.Sprintf("renter%d@rentals.test", i), "renter123", fmt.Sprintf("Renter %d", i), domain.RoleRenter))
	}

	log.Info("creating properties")
	now := time.Now().UTC()
	reviewedAt := now.Add(-48 * time.Hour)
	listings := []domain.Property{
		{OwnerID: owners[0].ID, Title: "Sunny studio near the park", City: "Almaty", Address: "Abay ave 12", PropertyType: "studio", Bedrooms: 1, Bathrooms: 1, PricePerMonth: decimal.RequireFromString("420.00"), Status: domain.PropertyApproved},
		{OwnerID: owners[0].ID, Title: "Family house with garden", City: "Almaty", Address: "Dostyk 88", PropertyType: "house", Bedrooms: 4, Bathrooms: 2, PricePerMonth: decimal.RequireFromString("1250.00"), Status: domain.PropertyApproved},
		{OwnerID: owners[1].ID, Title: "Loft in the old town", City: "Astana", Address: "Kenesary 5", PropertyType: "apartment", Bedrooms: 2, Bathrooms: 1, PricePerMonth: decimal.RequireFromString("780.50"), Status: domain.PropertyApproved},
		{OwnerID: owners[1].ID, Title: "Room by the university", City: "Astana", Address: "Satpayev 2", PropertyType: "room", Bedrooms: 1, Bathrooms: 1, PricePerMonth: decimal.RequireFromString("210.00"), Status: domain.PropertyPending},
	}
	for i := range listings {
		p := &listings[i]
		p.Images = []string{}
		if p.Status == domain.PropertyApproved {
			p.ReviewedBy = &admin.ID
			p.ReviewedAt = &reviewedAt
		}
		if err := db.Create(p).Error; err != nil {
			log.Fatal("create property failed", zap.Error(err))
		}
	}

	log.Info("creating bookings")
	start := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	bookings := []domain.Booking{
		newBooking(renters[0], listings[0], start, 3, domain.BookingApproved),
		newBooking(renters[1], listings[2], start, 6, domain.BookingPending),
		newBooking(renters[2], listings[1], start.AddDate(0, 2, 0), 12, domain.BookingApproved),
	}
	confirmedAt := now.Add(-time.Hour)
	intentID := "pi_seed_confirmed"
	bookings[2].PaymentStatus = domain.PaymentConfirmed
	bookings[2].PaymentIntentID = &intentID
	bookings[2].PaymentAmount = bookings[2].AdvanceMinor()
	bookings[2].PaymentSubmittedAt = &confirmedAt
	bookings[2].PaymentConfirmedAt = &confirmedAt
	for i := range bookings {
		if err := db.Create(&bookings[i]).Error; err != nil {
			log.Fatal("create booking failed", zap.Error(err))
		}
	}

	log.Info("creating favorites and ratings")
	db.Clauses(clause.OnConflict{DoNothing: true}).Create(&[]domain.Favorite{
		{UserID: renters[0].ID, PropertyID: listings[1].ID},
		{UserID: renters[1].ID, PropertyID: listings[0].ID},
	})
	db.Create(&[]domain.Rating{
		{UserID: renters[0].ID, PropertyID: listings[0].ID, Score: 5, Comment: "Bright and quiet"},
		{UserID: renters[2].ID, PropertyID: listings[0].ID, Score: 4},
	})

	db.Create(&domain.Notification{
		UserID:  owners[0].ID,
		Type:    domain.NotifBookingCreated,
		Title:   "New booking request",
		Message: "Your studio was requested for next month.",
		Data:    map[string]any{"booking_id": bookings[0].ID},
	})

	log.Info("seed completed",
		zap.String("admin", "admin@rentals.test / admin123"),
		zap.String("owners", "owner1..2@rentals.test / owner123"),
		zap.String("renters", "renter1..3@rentals.test / renter123"),
	)
}

func mustUser(log *zap.Logger, db *gorm.DB, email, password, name string, role domain.UserRole) domain.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("hash password failed", zap.Error(err))
	}
	u := domain.User{Email: email, PasswordHash: string(hash), Name: name, Role: role}
	if err := db.Create(&u).Error; err != nil {
		log.Fatal("create user failed", zap.String("email", email), zap.Error(err))
	}
	return u
}

func newBooking(renter domain.User, p domain.Property, start time.Time, months int, status domain.BookingStatus) domain.Booking {
	return domain.Booking{
		RenterID:      renter.ID,
		PropertyID:    p.ID,
		OwnerID:       p.OwnerID,
		StartDate:     start,
		EndDate:       start.AddDate(0, months, 0),
		TotalAmount:   p.PricePerMonth.Mul(decimal.NewFromInt(int64(months))),
		AdvanceAmount: p.PricePerMonth,
		Currency:      "usd",
		Status:        status,
		PaymentStatus: domain.PaymentUnset,
	}
}
