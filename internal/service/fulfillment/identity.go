package fulfillment

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

const (
	usernameLocalPartLimit = 18
	passwordLength         = 16
	nameFieldLimit         = 100

	defaultFirstName = "Student"
	defaultLastName  = "User"
)

// passwordAlphabet удовлетворяет парольной политике LMS по умолчанию:
// буквы обоих регистров, цифры и спецсимволы.
const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%*_-"

// GenUsername строит уникальный логин LMS из email: локальная часть,
// очищенная до [a-z0-9] и обрезанная, плюс случайный hex-суффикс.
// Суффикс защищает от коллизий между арендаторами и повторными покупками.
func GenUsername(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i >= 0 {
		local = email[:i]
	}

	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	sanitized := b.String()
	if sanitized == "" {
		sanitized = "user"
	}
	if len(sanitized) > usernameLocalPartLimit {
		sanitized = sanitized[:usernameLocalPartLimit]
	}

	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		// crypto/rand не должен отказывать; уникальность суффикса
		// деградировать нельзя.
		panic(err)
	}
	return sanitized + "_" + hex.EncodeToString(suffix)
}

// GenTempPassword генерирует одноразовый пароль для новой учётной записи.
// Пользователь получает его через механизм восстановления пароля LMS.
func GenTempPassword() string {
	out := make([]byte, passwordLength)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand не должен отказывать; деградация недопустима
			// для генерации пароля.
			panic(err)
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out)
}

// SplitName раскладывает отображаемое имя покупателя на имя и фамилию
// для карточки LMS. Пустые части заменяются плейсхолдерами.
func SplitName(fullName string) (firstName, lastName string) {
	parts := strings.Fields(strings.TrimSpace(fullName))
	switch len(parts) {
	case 0:
		return defaultFirstName, defaultLastName
	case 1:
		return truncateName(parts[0]), defaultLastName
	default:
		return truncateName(parts[0]), truncateName(strings.Join(parts[1:], " "))
	}
}

func truncateName(s string) string {
	if len(s) > nameFieldLimit {
		return s[:nameFieldLimit]
	}
	return s
}

// NewLMSUser собирает параметры учётной записи для создания в LMS.
func NewLMSUser(email, buyerName string) domain.LMSUser {
	first, last := SplitName(buyerName)
	return domain.LMSUser{
		Username:  GenUsername(email),
		Password:  GenTempPassword(),
		FirstName: first,
		LastName:  last,
		Email:     email,
	}
}
