package repository

import (
	"time"

	"backend/internal/app/ds"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertDonor создаёт донора или обновляет контактные данные по email.
// Счётчики пожертвований здесь не трогаем — их двигает только вебхук
// после подтверждения оплаты.
func (r *Repository) UpsertDonor(email, fullName string, phone, whatsapp *string, channel string) (*ds.Donor, error) {
	donor := ds.Donor{
		Email:            email,
		FullName:         fullName,
		Phone:            phone,
		WhatsappNumber:   whatsapp,
		PreferredChannel: channel,
	}

	assignments := map[string]interface{}{
		"full_name":         fullName,
		"preferred_channel": channel,
	}
	if phone != nil {
		assignments["phone"] = *phone
	}
	if whatsapp != nil {
		assignments["whatsapp_number"] = *whatsapp
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&donor).Error
	if err != nil {
		return nil, err
	}

	// Перечитываем запись: при конфликте Create не заполняет ID
	var saved ds.Donor
	if err := r.db.Where("email = ?", email).First(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

// CreateDonation записывает пожертвование в статусе PENDING
func (r *Repository) CreateDonation(donorID uint, amount float64, currency, frequency, checkoutRef string) (*ds.Donation, error) {
	donation := ds.Donation{
		DonorID:     donorID,
		Amount:      amount,
		Currency:    currency,
		Status:      "PENDING",
		Frequency:   frequency,
		CheckoutRef: checkoutRef,
	}
	if err := r.db.Create(&donation).Error; err != nil {
		return nil, err
	}
	return &donation, nil
}

// CompleteDonation закрывает пожертвование по ссылке checkout-сессии
// и обновляет агрегаты донора. paid=false помечает как FAILED.
func (r *Repository) CompleteDonation(checkoutRef string, paid bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var donation ds.Donation
		if err := tx.Where("checkout_ref = ?", checkoutRef).First(&donation).Error; err != nil {
			return err
		}

		// Повторный вызов вебхука не должен накручивать счётчики
		if donation.Status != "PENDING" {
			return nil
		}

		status := "COMPLETED"
		if !paid {
			status = "FAILED"
		}
		now := time.Now()
		if err := tx.Model(&donation).Updates(map[string]interface{}{
			"status":       status,
			"completed_at": &now,
		}).Error; err != nil {
			return err
		}

		if !paid {
			return nil
		}

		return tx.Model(&ds.Donor{}).Where("id = ?", donation.DonorID).Updates(map[string]interface{}{
			"donation_count": gorm.Expr("donation_count + 1"),
			"total_donated":  gorm.Expr("total_donated + ?", donation.Amount),
		}).Error
	})
}

// DonationStats возвращает агрегаты для публичной статистики
func (r *Repository) DonationStats() (donors, donations int64, total float64, err error) {
	if err = r.db.Model(&ds.Donor{}).Count(&donors).Error; err != nil {
		return
	}
	if err = r.db.Model(&ds.Donation{}).Where("status = ?", "COMPLETED").Count(&donations).Error; err != nil {
		return
	}
	var sum struct{ Total float64 }
	err = r.db.Model(&ds.Donation{}).Select("COALESCE(SUM(amount), 0) as total").
		Where("status = ?", "COMPLETED").Scan(&sum).Error
	total = sum.Total
	return
}
