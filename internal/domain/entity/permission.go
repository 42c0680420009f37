package entity

// Permission capacidad verificada en el servidor antes de ejecutar una operación.
type Permission string

const (
	PermInvoiceRead   Permission = "invoices:read"
	PermInvoiceCreate Permission = "invoices:create"
	PermInvoiceSend   Permission = "invoices:send"
	PermInvoiceVoid   Permission = "invoices:void"
	PermNoteIssue     Permission = "notes:issue"
	PermJournalRead   Permission = "journal:read"
	PermJournalWrite  Permission = "journal:write"
	PermJournalPost   Permission = "journal:post"
	PermJournalVoid   Permission = "journal:void"
	PermDianConfigure Permission = "dian:configure"
)

// Roles conocidos del token JWT.
const (
	RoleAdmin     = "admin"
	RoleContador  = "contador"
	RoleVendedor  = "vendedor"
	RoleBodeguero = "bodeguero"
)

var rolePermissions = map[string][]Permission{
	RoleContador: {
		PermInvoiceRead, PermInvoiceVoid, PermNoteIssue,
		PermJournalRead, PermJournalWrite, PermJournalPost, PermJournalVoid,
	},
	RoleVendedor:  {PermInvoiceRead, PermInvoiceCreate, PermInvoiceSend, PermNoteIssue},
	RoleBodeguero: {PermInvoiceRead},
}

// RoleHasPermission informa si el rol tiene la capacidad. admin tiene todas.
func RoleHasPermission(role string, p Permission) bool {
	if role == RoleAdmin {
		return true
	}
	for _, rp := range rolePermissions[role] {
		if rp == p {
			return true
		}
	}
	return false
}
