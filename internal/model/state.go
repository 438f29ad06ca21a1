package model

import "errors"

// RedeemStatus описывает статус запроса на погашение.
type RedeemStatus string

const (
	RedeemStatusPending        RedeemStatus = "Pending"
	RedeemStatusApproved       RedeemStatus = "Approved"
	RedeemStatusRejected       RedeemStatus = "Rejected"
	RedeemStatusPaymentPending RedeemStatus = "Payment Pending"
	RedeemStatusPurchased      RedeemStatus = "Purchased"
	RedeemStatusUsed           RedeemStatus = "Used"
)

var (
	// ErrInvalidStatus возвращается для неизвестного значения статуса.
	ErrInvalidStatus = errors.New("invalid redemption status")
	// ErrInvalidTransition возвращается, если статус недостижим из текущего.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrAlreadyUsed возвращается при повторной отметке об использовании.
	ErrAlreadyUsed = errors.New("offer has already been used")
	// ErrNotApproved возвращается при попытке использовать неодобренный запрос.
	ErrNotApproved = errors.New("redemption request is not approved")
)

// OpenRedeemStatuses перечисляет статусы, которые блокируют новый запрос той же пары
// (пользователь, предложение).
var OpenRedeemStatuses = []RedeemStatus{
	RedeemStatusPending,
	RedeemStatusApproved,
	RedeemStatusPaymentPending,
	RedeemStatusPurchased,
}

// ParseRedeemStatus преобразует строку в статус запроса.
func ParseRedeemStatus(s string) (RedeemStatus, error) {
	switch st := RedeemStatus(s); st {
	case RedeemStatusPending, RedeemStatusApproved, RedeemStatusRejected,
		RedeemStatusPaymentPending, RedeemStatusPurchased, RedeemStatusUsed:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// Open сообщает, блокирует ли статус создание нового запроса.
func (s RedeemStatus) Open() bool {
	for _, st := range OpenRedeemStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Terminal сообщает, является ли статус конечным.
func (s RedeemStatus) Terminal() bool {
	return s == RedeemStatusRejected || s == RedeemStatusUsed
}

// CanTransition проверяет допустимость перехода from -> to.
// Для запросов с оплатой путь Approved -> Used проходит через Payment Pending и Purchased.
func CanTransition(from, to RedeemStatus, paymentRequired bool) bool {
	switch from {
	case RedeemStatusPending:
		return to == RedeemStatusApproved || to == RedeemStatusRejected
	case RedeemStatusApproved:
		if paymentRequired {
			return to == RedeemStatusPaymentPending
		}
		return to == RedeemStatusUsed
	case RedeemStatusPaymentPending:
		return paymentRequired && (to == RedeemStatusPurchased || to == RedeemStatusRejected)
	case RedeemStatusPurchased:
		return paymentRequired && to == RedeemStatusUsed
	}
	return false
}

// Usable сообщает, можно ли отметить запрос как использованный.
func (r *RedeemOffer) Usable() bool {
	if r.PaymentRequired() {
		return r.Status == RedeemStatusPurchased
	}
	return r.Status == RedeemStatusApproved
}
