// Package model содержит доменные сущности сервиса погашения предложений.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OfferStatus описывает статус жизненного цикла предложения.
type OfferStatus string

const (
	OfferStatusActive   OfferStatus = "Active"
	OfferStatusInactive OfferStatus = "Inactive"
)

// Valid сообщает, является ли значение допустимым статусом предложения.
func (s OfferStatus) Valid() bool {
	return s == OfferStatusActive || s == OfferStatusInactive
}

// Offer описывает скидочное предложение, привязанное к одному или нескольким ресторанам.
type Offer struct {
	ID               string
	Title            string
	Description      string
	OfferType        string
	DiscountValue    decimal.Decimal
	RestaurantIDs    []string
	ValidFrom        *time.Time
	ValidTo          *time.Time
	RequiresApproval bool
	MinOrderValue    decimal.Decimal
	MaxRedemptions   int
	PaymentRequired  bool
	ImageURL         string
	Status           OfferStatus
	CreatedAt        time.Time
}

// Expired сообщает, истёк ли срок действия предложения к моменту now.
func (o *Offer) Expired(now time.Time) bool {
	return o.ValidTo != nil && o.ValidTo.Before(now)
}

// PaymentStatus описывает статус оплаты запроса на погашение.
type PaymentStatus string

const (
	PaymentStatusNotRequired PaymentStatus = "Not Required"
	PaymentStatusPending     PaymentStatus = "Pending"
	PaymentStatusCompleted   PaymentStatus = "Completed"
)

// RedeemOffer описывает запрос пользователя на погашение предложения.
type RedeemOffer struct {
	ID            string
	UserID        string
	OfferID       string
	RestaurantID  string
	OwnerID       string
	Status        RedeemStatus
	PaymentStatus PaymentStatus
	RequestedAt   time.Time
	RedeemedAt    *time.Time
	UpdatedAt     time.Time
}

// PaymentRequired сообщает, проходит ли запрос через ветку оплаты.
func (r *RedeemOffer) PaymentRequired() bool {
	return r.PaymentStatus != PaymentStatusNotRequired
}

// Restaurant описывает ресторан из внешнего справочника.
type Restaurant struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	OwnerID string `json:"owner_id"`
}

// User описывает пользователя из внешнего справочника.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// OfferSummary содержит данные предложения, отображаемые вместе с запросом.
type OfferSummary struct {
	ID            string
	Title         string
	Description   string
	DiscountValue decimal.Decimal
	Status        OfferStatus
}

// RedeemOfferDetails содержит запрос на погашение с разрешёнными ссылками.
// Любая из ссылок может отсутствовать, например если предложение удалено.
type RedeemOfferDetails struct {
	RedeemOffer
	Offer      *OfferSummary
	User       *User
	Restaurant *Restaurant
	Owner      *User
}

// RedeemOfferFilter задаёт выборку запросов для представлений.
// Пустые поля не участвуют в фильтрации.
type RedeemOfferFilter struct {
	UserID       string
	OwnerID      string
	RestaurantID string
}
