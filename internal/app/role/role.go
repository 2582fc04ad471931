package role

import "strings"

// Role определяет уровень доступа пользователя в системе
type Role int

const (
	Public Role = iota // анонимный посетитель сайта
	Partner            // пользователь партнёрского портала
	Staff              // сотрудник организации (внутренний дашборд)
)

func (r Role) String() string {
	switch r {
	case Partner:
		return "partner"
	case Staff:
		return "staff"
	default:
		return "public"
	}
}

// Classify определяет роль один раз на запрос по email и роли из БД.
// Сотрудники распознаются по корпоративному домену, всё остальное
// с валидной учёткой портала считается партнёром.
func Classify(email, dbRole, staffDomain string) Role {
	if email == "" {
		return Public
	}
	if staffDomain != "" && strings.HasSuffix(strings.ToLower(email), "@"+strings.ToLower(staffDomain)) {
		return Staff
	}
	if strings.EqualFold(dbRole, "STAFF") {
		return Staff
	}
	if strings.EqualFold(dbRole, "PARTNER") {
		return Partner
	}
	return Public
}
