package model

// EmployeeRole 员工角色
type EmployeeRole string

const (
	EmployeeRoleEmployee EmployeeRole = "employee"
	EmployeeRoleManager  EmployeeRole = "manager"
)

// EmployeeStatus 员工账号状态
type EmployeeStatus string

const (
	EmployeeStatusActive   EmployeeStatus = "active"
	EmployeeStatusInactive EmployeeStatus = "inactive"
)

// ManagerKind 汇报对象所在的表，员工或管理员
type ManagerKind string

const (
	ManagerKindNone     ManagerKind = ""
	ManagerKindEmployee ManagerKind = "employee"
	ManagerKindAdmin    ManagerKind = "admin"
)

// ManagerRef 汇报对象引用，Kind 决定 ID 指向 employees 还是 admins
type ManagerRef struct {
	ID   *int64      `gorm:"column:manager_id;index:idx_employees_manager" json:"id,omitempty"`
	Kind ManagerKind `gorm:"column:manager_kind;type:varchar(16);index:idx_employees_manager" json:"kind,omitempty"`
}

func EmployeeManager(id int64) ManagerRef {
	return ManagerRef{ID: &id, Kind: ManagerKindEmployee}
}

func AdminManager(id int64) ManagerRef {
	return ManagerRef{ID: &id, Kind: ManagerKindAdmin}
}

// Valid Kind 与 ID 必须同时存在或同时为空
func (m ManagerRef) Valid() bool {
	switch m.Kind {
	case ManagerKindNone:
		return m.ID == nil
	case ManagerKindEmployee, ManagerKindAdmin:
		return m.ID != nil && *m.ID > 0
	default:
		return false
	}
}

func (m ManagerRef) IsAdmin() bool {
	return m.Kind == ManagerKindAdmin
}

// Employee 员工，考勤只读取身份、状态与时区
type Employee struct {
	BaseModel
	Name          string         `gorm:"type:varchar(50);not null;index" json:"name"`
	Email         string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Role          EmployeeRole   `gorm:"type:varchar(16);not null;default:'employee'" json:"role"`
	Status        EmployeeStatus `gorm:"type:varchar(16);not null;default:'active'" json:"status"`
	HeadquarterID *int64         `gorm:"index" json:"headquarter_id,omitempty"`
	// IANA 时区，为空时使用组织默认时区
	Timezone string     `gorm:"type:varchar(64);not null;default:''" json:"timezone"`
	Manager  ManagerRef `gorm:"embedded" json:"manager"`
}

func (Employee) TableName() string {
	return "employees"
}

func (e *Employee) IsActive() bool {
	return e.Status == "" || e.Status == EmployeeStatusActive
}
