// Package model содержит доменные сущности витрины: снимки товаров, корзину и планы рассрочки.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product описывает снимок товара из каталога, на основе которого формируются строки корзины и рассрочки.
type Product struct {
	ID       string   `json:"id"`
	VendorID string   `json:"vendorId"`
	Name     string   `json:"name"`
	Images   []string `json:"images"`
	Price    int64    `json:"price"`
	Stock    int      `json:"stock"`
}

// FirstImage возвращает первое изображение товара или пустую строку.
func (p Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Variation описывает выбранные атрибуты товара (например, размер и цвет).
type Variation map[string]string

// CartItem описывает строку корзины. Цена и остаток фиксируются в момент добавления.
type CartItem struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	VendorID  string    `json:"vendorId"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	Price     int64     `json:"price"`
	Quantity  int       `json:"quantity"`
	Variation Variation `json:"variation,omitempty"`
	Stock     int       `json:"stock"`
}

// CartState содержит строки корзины и производные итоги.
type CartState struct {
	Items       []CartItem `json:"items"`
	ItemCount   int        `json:"itemCount"`
	Subtotal    int64      `json:"subtotal"`
	DeliveryFee int64      `json:"deliveryFee"`
	Total       int64      `json:"total"`
}

// VendorGroup описывает строки корзины одного продавца.
type VendorGroup struct {
	VendorID string     `json:"vendorId"`
	Items    []CartItem `json:"items"`
	Subtotal int64      `json:"subtotal"`
}

// AddItemRequest описывает запрос на добавление товара в корзину.
// Если Product не задан, снимок товара запрашивается в каталоге по ProductID.
type AddItemRequest struct {
	ProductID string    `json:"productId"`
	Product   *Product  `json:"product,omitempty"`
	Quantity  int       `json:"quantity"`
	Variation Variation `json:"variation,omitempty"`
}

// VendorOrder описывает заказ одного продавца, сформированный при оформлении корзины.
type VendorOrder struct {
	VendorID    string     `json:"vendorId"`
	Items       []CartItem `json:"items"`
	Subtotal    int64      `json:"subtotal"`
	DeliveryFee int64      `json:"deliveryFee"`
	Total       int64      `json:"total"`
}

// Checkout описывает результат оформления корзины.
type Checkout struct {
	ID          string        `json:"id"`
	SessionID   string        `json:"sessionId"`
	Orders      []VendorOrder `json:"orders"`
	ItemCount   int           `json:"itemCount"`
	Subtotal    int64         `json:"subtotal"`
	DeliveryFee int64         `json:"deliveryFee"`
	Total       int64         `json:"total"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// PlanOption описывает один из фиксированных планов рассрочки.
type PlanOption struct {
	Duration     int    `json:"duration"`
	InterestRate int    `json:"interestRate"`
	Label        string `json:"label"`
}

// InstallmentQuote содержит расчёт рассрочки для цены и выбранного плана.
// Значения не округляются: округление выполняется при отображении.
type InstallmentQuote struct {
	ProductPrice    int64           `json:"productPrice"`
	DownPayment     int64           `json:"downPayment"`
	RemainingAmount int64           `json:"remainingAmount"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	MonthlyPayment  decimal.Decimal `json:"monthlyPayment"`
	Duration        int             `json:"duration"`
	InterestRate    int             `json:"interestRate"`
	InterestAmount  decimal.Decimal `json:"interestAmount"`
}

// Eligibility описывает доступность рассрочки для цены.
type Eligibility struct {
	Eligible      bool             `json:"eligible"`
	MinAmount     int64            `json:"minAmount"`
	LowestMonthly *decimal.Decimal `json:"lowestMonthly,omitempty"`
}

// PaymentStatus описывает статус ежемесячного платежа.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusOverdue PaymentStatus = "overdue"
)

// InstallmentStatus описывает статус плана рассрочки.
type InstallmentStatus string

const (
	InstallmentStatusActive    InstallmentStatus = "active"
	InstallmentStatusCompleted InstallmentStatus = "completed"
	InstallmentStatusDefaulted InstallmentStatus = "defaulted"
	InstallmentStatusCancelled InstallmentStatus = "cancelled"
)

// InstallmentPayment описывает один платёж графика.
type InstallmentPayment struct {
	ID            string          `json:"id"`
	InstallmentID string          `json:"installmentId"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"dueDate"`
	Status        PaymentStatus   `json:"status"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
}

// Installment описывает план рассрочки пользователя вместе с графиком платежей.
type Installment struct {
	ID               string               `json:"id"`
	UserID           string               `json:"userId"`
	ProductID        string               `json:"productId"`
	ProductName      string               `json:"productName"`
	ProductImage     string               `json:"productImage"`
	ProductPrice     int64                `json:"productPrice"`
	DownPayment      int64                `json:"downPayment"`
	TotalAmount      decimal.Decimal      `json:"totalAmount"`
	MonthlyPayment   decimal.Decimal      `json:"monthlyPayment"`
	Duration         int                  `json:"duration"`
	InterestRate     int                  `json:"interestRate"`
	PaidInstallments int                  `json:"paidInstallments"`
	Payments         []InstallmentPayment `json:"payments"`
	Status           InstallmentStatus    `json:"status"`
	CreatedAt        time.Time            `json:"createdAt"`
	CompletedAt      *time.Time           `json:"completedAt,omitempty"`
}

// CreateInstallmentRequest описывает запрос на оформление рассрочки.
// Если Product не задан, снимок товара запрашивается в каталоге по ProductID.
type CreateInstallmentRequest struct {
	ProductID   string   `json:"productId"`
	Product     *Product `json:"product,omitempty"`
	Plan        string   `json:"plan"`
	DownPayment int64    `json:"downPayment"`
}

// InstallmentDetails содержит план рассрочки с прогрессом оплаты и датой ближайшего платежа.
type InstallmentDetails struct {
	Installment
	Progress        float64    `json:"progress"`
	NextPaymentDate *time.Time `json:"nextPaymentDate,omitempty"`
}

// Доменные события, публикуемые в брокер сообщений.

// InstallmentCreated публикуется после создания плана рассрочки.
type InstallmentCreated struct {
	InstallmentID  string          `json:"installmentId"`
	UserID         string          `json:"userId"`
	ProductID      string          `json:"productId"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	MonthlyPayment decimal.Decimal `json:"monthlyPayment"`
	Duration       int             `json:"duration"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// InstallmentPaymentRecorded публикуется после оплаты платежа графика.
type InstallmentPaymentRecorded struct {
	InstallmentID string            `json:"installmentId"`
	PaymentID     string            `json:"paymentId"`
	UserID        string            `json:"userId"`
	Amount        decimal.Decimal   `json:"amount"`
	Status        InstallmentStatus `json:"status"`
	PaidAt        time.Time         `json:"paidAt"`
}

// InstallmentPaymentOverdue публикуется, когда платёж становится просроченным.
type InstallmentPaymentOverdue struct {
	InstallmentID string          `json:"installmentId"`
	PaymentID     string          `json:"paymentId"`
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"dueDate"`
}

// CartCheckedOut публикуется после оформления корзины.
type CartCheckedOut struct {
	Checkout Checkout `json:"checkout"`
}
