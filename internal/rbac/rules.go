package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"course:view",
		"lecture:view",
		"quiz:view",
		"quiz:attempt",
		"attempt:view-own",
		"assignment:view",
		"submission:create",
		"submission:edit-own",
		"submission:delete-own",
		"report:quiz-grade",
		"offline:data",
	},
	"teacher": {
		"course:create",
		"course:view",
		"course:enroll",
		"course:delete",
		"lecture:*",
		"quiz:*",
		"attempt:view-all",
		"assignment:*",
		"submission:grade",
		"analytics:course",
		"report:course",
		"users:list",
	},
	"admin": {
		"*", // everything
	},
}
