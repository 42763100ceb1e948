// Пакет rbac — роли пользователей и субъект операции (Actor).
// Итоговая роль = max(роль из IdP, локальное повышение).
// Роль можно только повысить, не понизить.
package rbac

// Роли в порядке возрастания привилегий.
const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleSuperuser = "superuser"
)

// roleWeight — вес роли для сравнения.
var roleWeight = map[string]int{
	RoleUser:      1,
	RoleAdmin:     2,
	RoleSuperuser: 3,
}

// EffectiveRole вычисляет итоговую роль = max(idpRole, roleOverride).
// Если roleOverride == nil, возвращает idpRole.
func EffectiveRole(idpRole string, roleOverride *string) string {
	if roleOverride == nil {
		return idpRole
	}
	return maxRole(idpRole, *roleOverride)
}

func maxRole(a, b string) string {
	if roleWeight[a] >= roleWeight[b] {
		return a
	}
	return b
}

// HighestRole возвращает максимальную роль из набора.
// Если набор пуст — возвращает пустую строку.
func HighestRole(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	highest := roles[0]
	for _, r := range roles[1:] {
		highest = maxRole(highest, r)
	}
	return highest
}

// MapGroupsToRole определяет роль по группам IdP.
// Аутентифицированный пользователь без служебных групп получает RoleUser.
func MapGroupsToRole(groups []string, adminGroups, superuserGroups []string) string {
	adminSet := toSet(adminGroups)
	superSet := toSet(superuserGroups)

	roles := []string{RoleUser}
	for _, g := range groups {
		if superSet[g] {
			roles = append(roles, RoleSuperuser)
		}
		if adminSet[g] {
			roles = append(roles, RoleAdmin)
		}
	}
	return HighestRole(roles)
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

// IsStaffRole — роль даёт права сотрудника (управление анкетами и заявками).
func IsStaffRole(role string) bool {
	return roleWeight[role] >= roleWeight[RoleAdmin]
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}

// Actor — субъект, от имени которого выполняется операция.
// Нулевое значение — анонимный посетитель.
type Actor struct {
	// ID — sub из JWT (пусто для анонимного)
	ID string
	// Email — email из JWT
	Email string
	// Role — итоговая роль
	Role string
	// Lang — предпочитаемый язык уведомлений (en, ru)
	Lang string
}

// Anonymous — анонимный посетитель.
var Anonymous = Actor{}

// IsAuthenticated — субъект прошёл аутентификацию.
func (a Actor) IsAuthenticated() bool {
	return a.ID != ""
}

// IsStaff — субъект может управлять анкетами, шаблонами и заявками.
func (a Actor) IsStaff() bool {
	return a.IsAuthenticated() && IsStaffRole(a.Role)
}

// IsSuperuser — субъект может управлять ролями.
func (a Actor) IsSuperuser() bool {
	return a.IsAuthenticated() && a.Role == RoleSuperuser
}

// Subject возвращает указатель на ID или nil для анонимного.
func (a Actor) Subject() *string {
	if !a.IsAuthenticated() {
		return nil
	}
	id := a.ID
	return &id
}
