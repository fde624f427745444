package guard

import (
	"fmt"
	"strings"

	"github.com/ChuLiYu/talenthub-cli/pkg/types"
)

// Route 客戶端路由
type Route string

// 路由表
const (
	RouteLanding   Route = "/"
	RouteLogin     Route = "/login"
	RouteSignup    Route = "/signup"
	RouteAdmin     Route = "/admin-landing"
	RouteEmployer  Route = "/employer-landing"
	RouteApplicant Route = "/applicant-landing"
)

// Routes 所有已知路由
var Routes = []Route{RouteLanding, RouteLogin, RouteSignup, RouteAdmin, RouteEmployer, RouteApplicant}

// ParseRoute 解析路由字串，允許省略開頭的 "/"
func ParseRoute(s string) (Route, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	for _, r := range Routes {
		if Route(s) == r {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown route %q", s)
}

// LandingFor 回傳角色對應的儀表板路由，沒有角色時為 "/"
func LandingFor(role types.Role) Route {
	switch role {
	case types.RoleAdmin:
		return RouteAdmin
	case types.RoleEmployer:
		return RouteEmployer
	case types.RoleApplicant:
		return RouteApplicant
	default:
		return RouteLanding
	}
}

// RequiredRole 回傳受保護路由要求的角色；公開路由回傳 false
func RequiredRole(route Route) (types.Role, bool) {
	switch route {
	case RouteAdmin:
		return types.RoleAdmin, true
	case RouteEmployer:
		return types.RoleEmployer, true
	case RouteApplicant:
		return types.RoleApplicant, true
	default:
		return types.RoleNone, false
	}
}
