// Package repository содержит реализации хранилища предложений и запросов на погашение.
package repository

import "errors"

// ErrOfferNotFound возвращается, если предложение не найдено.
var (
	ErrOfferNotFound = errors.New("offer not found")
	// ErrRedeemOfferNotFound возвращается, если запрос на погашение не найден.
	ErrRedeemOfferNotFound = errors.New("redemption request not found")
	// ErrRestaurantNotFound возвращается, если ресторан отсутствует в справочнике.
	ErrRestaurantNotFound = errors.New("restaurant not found")
	// ErrDuplicateRequest возвращается при наличии открытого запроса той же пары пользователь-предложение.
	ErrDuplicateRequest = errors.New("offer already requested, please wait for approval")
)
