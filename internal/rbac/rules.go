package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"attempt:start",
		"attempt:save",
		"attempt:submit",
		"attempt:view-own",
		"practice:start",
		"practice:save",
		"practice:submit",
		"enrollment:update-own",
	},
	"instructor": {
		"attempt:view-all",
		"attempt:grade",
		"practice:view-all",
		"course:publish",
		"snapshot:rebuild",
	},
	"admin": {
		"*", // everything
	},
}
