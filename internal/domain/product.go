package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MinChargeCents — минимальная сумма списания в минорных единицах,
// которую принимает платёжный провайдер.
const MinChargeCents = 50

// Product — продаваемая единица каталога арендатора.
// Продукт связывает одну покупку с одним или несколькими курсами LMS.
type Product struct {
	ID          string
	TenantID    string
	Title       string
	Description string
	ImageURL    string
	Currency    string

	// Цена хранится и как decimal, и как зеркальное целое в минорных единицах.
	Price      decimal.Decimal
	PriceCents int64
	// DiscountPrice при наличии имеет приоритет над Price и обязана быть строго меньше её.
	DiscountPrice *decimal.Decimal

	Published bool
	InStock   bool
	CreatedAt time.Time
}

// ValidateInvariants проверяет инварианты продукта и возвращает список замечаний.
// Правило "скидка строго меньше цены" применяется на записи продукта,
// чтобы checkout мог доверять данным каталога.
func (p *Product) ValidateInvariants() []error {
	var errs []error

	if p.TenantID == "" {
		errs = append(errs, ErrTenantRequired)
	}
	if p.Title == "" {
		errs = append(errs, ErrTitleRequired)
	}
	if p.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if p.Price.IsNegative() {
		errs = append(errs, ErrPriceInvalid)
	}
	if p.DiscountPrice != nil {
		if p.DiscountPrice.IsNegative() {
			errs = append(errs, ErrPriceInvalid)
		}
		if p.DiscountPrice.GreaterThanOrEqual(p.Price) {
			errs = append(errs, ErrDiscountNotLower)
		}
	}

	return errs
}

// UnitAmountCents вычисляет сумму списания в минорных единицах.
// Скидочная цена имеет приоритет; зеркало PriceCents используется как
// быстрый путь, когда оно заполнено.
func (p *Product) UnitAmountCents() int64 {
	if p.DiscountPrice != nil {
		return MinorUnits(*p.DiscountPrice)
	}
	if p.PriceCents > 0 {
		return p.PriceCents
	}
	return MinorUnits(p.Price)
}

// MinorUnits переводит decimal-цену в минорные единицы валюты.
// Округление half-up до двух знаков: 15.995 → 1600.
func MinorUnits(d decimal.Decimal) int64 {
	return d.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
}

// Course — локальное зеркало курса из LMS арендатора,
// обновляемое операцией синхронизации каталога.
// Инвариант: уникальность по (tenant, LMSCourseID).
type Course struct {
	ID          string
	TenantID    string
	LMSCourseID int64
	FullName    string
	Summary     string
	CreatedAt   time.Time
}
