package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// AccessPolicy maps domain -> action -> required privilege code. The map is
// injected at construction so deployments can reshape it without touching
// process-wide state.
type AccessPolicy struct {
	rules map[string]map[string]string
}

func NewAccessPolicy(rules map[string]map[string]string) *AccessPolicy {
	return &AccessPolicy{rules: rules}
}

// PrivilegeFor resolves the privilege code guarding domain/action.
func (p *AccessPolicy) PrivilegeFor(domain, action string) (string, bool) {
	actions, ok := p.rules[domain]
	if !ok {
		return "", false
	}
	code, ok := actions[action]
	return code, ok
}

// Require returns middleware enforcing the privilege mapped for
// domain/action. An unmapped pair is denied outright: routes must be
// registered in the policy before they can be guarded.
func (p *AccessPolicy) Require(domain, action string) fiber.Handler {
	code, mapped := p.PrivilegeFor(domain, action)
	return func(c *fiber.Ctx) error {
		if !mapped {
			return c.Status(403).JSON(fiber.Map{"error": "Forbidden: no access rule for " + domain + ":" + action})
		}

		privileges, ok := c.Locals("user_privileges").([]string)
		if !ok {
			return c.Status(403).JSON(fiber.Map{"error": "No privileges found"})
		}

		for _, priv := range privileges {
			if priv == code {
				return c.Next()
			}
		}

		return c.Status(403).JSON(fiber.Map{
			"error": "Forbidden: requires '" + code + "' privilege",
		})
	}
}

// DefaultAccessRules is the stock domain -> action -> privilege mapping,
// aligned with model.DefaultPrivileges.
func DefaultAccessRules() map[string]map[string]string {
	return map[string]map[string]string{
		"product": {
			"view":       "product:view",
			"create":     "product:create",
			"update":     "product:update",
			"deactivate": "product:deactivate",
		},
		"stock": {
			"receive": "stock:receive",
			"issue":   "stock:issue",
			"adjust":  "stock:adjust",
		},
		"ledger": {
			"view": "ledger:view",
		},
		"sale": {
			"view":    "sale:view",
			"create":  "sale:create",
			"confirm": "sale:confirm",
			"delete":  "sale:delete",
		},
		"customer": {
			"view":   "customer:view",
			"create": "customer:create",
			"update": "customer:update",
			"delete": "customer:delete",
		},
		"register": {
			"open":  "register:open",
			"close": "register:close",
			"view":  "register:view",
		},
		"user": {
			"create":           "user:create",
			"update":           "user:update",
			"delete":           "user:delete",
			"update_privilege": "user:update_privilege",
		},
		"dashboard": {
			"view": "dashboard:view",
		},
	}
}
