package core

import "bookcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Role               = domain.Role
	CompanyCategory    = domain.CompanyCategory
	AppointmentStatus  = domain.AppointmentStatus
	Base               = domain.Base
	User               = domain.User
	Company            = domain.Company
	ServiceOffering    = domain.Service
	Availability       = domain.Availability
	Appointment        = domain.Appointment
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	Severity           = domain.Severity
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	EntityUser         = domain.EntityUser
	EntityCompany      = domain.EntityCompany
	EntityService      = domain.EntityService
	EntityAvailability = domain.EntityAvailability
	EntityAppointment  = domain.EntityAppointment
)

const (
	RolePatient  = domain.RolePatient
	RoleProvider = domain.RoleProvider
	RoleAdmin    = domain.RoleAdmin
)

const (
	StatusPending   = domain.StatusPending
	StatusConfirmed = domain.StatusConfirmed
	StatusCancelled = domain.StatusCancelled
	StatusCompleted = domain.StatusCompleted
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
