package model

import (
	"strings"

	"github.com/samber/lo"
)

// Closed string enums.  Each type lists its literals once and exposes a
// Parse function; values arriving from JSON bodies are untyped strings and
// must go through Parse before they reach the repository layer.

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleStaff      Role = "staff"
	RoleContractor Role = "contractor"
)

var Roles = []Role{RoleAdmin, RoleManager, RoleStaff, RoleContractor}

func ParseRole(s string) (Role, bool) { return parseEnum(s, Roles) }

type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "Planning"
	ProjectActive    ProjectStatus = "Active"
	ProjectOnHold    ProjectStatus = "On Hold"
	ProjectCompleted ProjectStatus = "Completed"
)

var ProjectStatuses = []ProjectStatus{ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted}

func ParseProjectStatus(s string) (ProjectStatus, bool) { return parseEnum(s, ProjectStatuses) }

type MilestoneStatus string

const (
	MilestonePending    MilestoneStatus = "Pending"
	MilestoneInProgress MilestoneStatus = "In Progress"
	MilestoneCompleted  MilestoneStatus = "Completed"
	MilestoneDelayed    MilestoneStatus = "Delayed"
)

var MilestoneStatuses = []MilestoneStatus{MilestonePending, MilestoneInProgress, MilestoneCompleted, MilestoneDelayed}

func ParseMilestoneStatus(s string) (MilestoneStatus, bool) { return parseEnum(s, MilestoneStatuses) }

type CommunicationType string

const (
	CommNotice       CommunicationType = "notice"
	CommMessage      CommunicationType = "message"
	CommAnnouncement CommunicationType = "announcement"
)

var CommunicationTypes = []CommunicationType{CommNotice, CommMessage, CommAnnouncement}

func ParseCommunicationType(s string) (CommunicationType, bool) {
	return parseEnum(s, CommunicationTypes)
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// prioritySynonyms maps every accepted spelling, lower-cased, to its
// canonical value.  Older clients sent "Critical", "Urgent" and "Normal".
var prioritySynonyms = map[string]Priority{
	"low":      PriorityLow,
	"medium":   PriorityMedium,
	"normal":   PriorityMedium,
	"high":     PriorityHigh,
	"critical": PriorityHigh,
	"urgent":   PriorityHigh,
}

// NormalizePriority collapses legacy and case-variant priority labels to
// low/medium/high.  An empty input yields medium.
func NormalizePriority(s string) (Priority, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return PriorityMedium, true
	}
	p, ok := prioritySynonyms[key]
	return p, ok
}

type EquipmentStatus string

const (
	EquipmentAvailable   EquipmentStatus = "Available"
	EquipmentInUse       EquipmentStatus = "In Use"
	EquipmentMaintenance EquipmentStatus = "Maintenance"
	EquipmentUnavailable EquipmentStatus = "Unavailable"
)

var EquipmentStatuses = []EquipmentStatus{EquipmentAvailable, EquipmentInUse, EquipmentMaintenance, EquipmentUnavailable}

func ParseEquipmentStatus(s string) (EquipmentStatus, bool) { return parseEnum(s, EquipmentStatuses) }

type DispatchStatus string

const (
	DispatchPending    DispatchStatus = "Pending"
	DispatchApproved   DispatchStatus = "Approved"
	DispatchDispatched DispatchStatus = "Dispatched"
	DispatchReturned   DispatchStatus = "Returned"
	DispatchCancelled  DispatchStatus = "Cancelled"
)

var DispatchStatuses = []DispatchStatus{DispatchPending, DispatchApproved, DispatchDispatched, DispatchReturned, DispatchCancelled}

func ParseDispatchStatus(s string) (DispatchStatus, bool) { return parseEnum(s, DispatchStatuses) }

type InventoryLogType string

const (
	LogAddition   InventoryLogType = "addition"
	LogDeduction  InventoryLogType = "deduction"
	LogTransfer   InventoryLogType = "transfer"
	LogAdjustment InventoryLogType = "adjustment"
)

var InventoryLogTypes = []InventoryLogType{LogAddition, LogDeduction, LogTransfer, LogAdjustment}

func ParseInventoryLogType(s string) (InventoryLogType, bool) {
	return parseEnum(s, InventoryLogTypes)
}

type RequestStatus string

const (
	RequestPending   RequestStatus = "Pending"
	RequestApproved  RequestStatus = "Approved"
	RequestFulfilled RequestStatus = "Fulfilled"
	RequestRejected  RequestStatus = "Rejected"
)

var RequestStatuses = []RequestStatus{RequestPending, RequestApproved, RequestFulfilled, RequestRejected}

func ParseRequestStatus(s string) (RequestStatus, bool) { return parseEnum(s, RequestStatuses) }

type PurchaseStatus string

const (
	PurchasePending  PurchaseStatus = "Pending"
	PurchaseApproved PurchaseStatus = "Approved"
	PurchaseRejected PurchaseStatus = "Rejected"
	PurchaseOrdered  PurchaseStatus = "Ordered"
)

var PurchaseStatuses = []PurchaseStatus{PurchasePending, PurchaseApproved, PurchaseRejected, PurchaseOrdered}

func ParsePurchaseStatus(s string) (PurchaseStatus, bool) { return parseEnum(s, PurchaseStatuses) }

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "Present"
	AttendanceAbsent  AttendanceStatus = "Absent"
	AttendanceLate    AttendanceStatus = "Late"
	AttendanceLeave   AttendanceStatus = "Leave"
)

var AttendanceStatuses = []AttendanceStatus{AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceLeave}

func ParseAttendanceStatus(s string) (AttendanceStatus, bool) {
	return parseEnum(s, AttendanceStatuses)
}

type NCRStatus string

const (
	NCROpen               NCRStatus = "Open"
	NCRUnderInvestigation NCRStatus = "Under Investigation"
	NCRCorrectiveAction   NCRStatus = "Corrective Action"
	NCRVerification       NCRStatus = "Verification"
	NCRClosed             NCRStatus = "Closed"
)

var NCRStatuses = []NCRStatus{NCROpen, NCRUnderInvestigation, NCRCorrectiveAction, NCRVerification, NCRClosed}

func ParseNCRStatus(s string) (NCRStatus, bool) { return parseEnum(s, NCRStatuses) }

type InspectionResult string

const (
	InspectionPass        InspectionResult = "Pass"
	InspectionFail        InspectionResult = "Fail"
	InspectionConditional InspectionResult = "Conditional"
)

var InspectionResults = []InspectionResult{InspectionPass, InspectionFail, InspectionConditional}

func ParseInspectionResult(s string) (InspectionResult, bool) {
	return parseEnum(s, InspectionResults)
}

type TestOutcome string

const (
	TestPass    TestOutcome = "Pass"
	TestFail    TestOutcome = "Fail"
	TestPending TestOutcome = "Pending"
)

var TestOutcomes = []TestOutcome{TestPass, TestFail, TestPending}

func ParseTestOutcome(s string) (TestOutcome, bool) { return parseEnum(s, TestOutcomes) }

type ContractorStatus string

const (
	ContractorActive   ContractorStatus = "Active"
	ContractorInactive ContractorStatus = "Inactive"
)

var ContractorStatuses = []ContractorStatus{ContractorActive, ContractorInactive}

func ParseContractorStatus(s string) (ContractorStatus, bool) {
	return parseEnum(s, ContractorStatuses)
}

// DocumentCategory names one of the four document arrays on a project.
type DocumentCategory string

const (
	DocDrawings    DocumentCategory = "drawings"
	DocBOQ         DocumentCategory = "boq"
	DocLegal       DocumentCategory = "legalDocs"
	DocSafetyCerts DocumentCategory = "safetyCerts"
)

var DocumentCategories = []DocumentCategory{DocDrawings, DocBOQ, DocLegal, DocSafetyCerts}

func ParseDocumentCategory(s string) (DocumentCategory, bool) {
	return parseEnum(s, DocumentCategories)
}

// parseEnum accepts s only when it is exactly one of the allowed literals.
func parseEnum[T ~string](s string, allowed []T) (T, bool) {
	v := T(strings.TrimSpace(s))
	if !lo.Contains(allowed, v) {
		var zero T
		return zero, false
	}
	return v, true
}
