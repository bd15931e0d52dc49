package models

import (
	"strings"
)

/* Roles */

type Role string

const (
	RoleDesigner     Role = "designer"
	RoleSupplier     Role = "supplier"
	RoleManufacturer Role = "manufacturer"
	RoleTester       Role = "tester"
	RoleLab          Role = "lab"
	RoleAccountant   Role = "accountant"
	RoleSuperadmin   Role = "superadmin"
)

// ParseRole normalizes a stored role string (case- and whitespace-insensitive).
func ParseRole(s string) (Role, bool) {
	roles := map[string]Role{
		"designer":     RoleDesigner,
		"supplier":     RoleSupplier,
		"manufacturer": RoleManufacturer,
		"tester":       RoleTester,
		"lab":          RoleLab,
		"accountant":   RoleAccountant,
		"superadmin":   RoleSuperadmin,
	}
	r, ok := roles[strings.ToLower(strings.TrimSpace(s))]
	return r, ok
}

// IsSuperuser reports whether the role passes every allowed-roles check
// implicitly, even when not listed.
func (r Role) IsSuperuser() bool {
	return r == RoleSuperadmin
}

/* Product model development stages */

type DevelopmentStage string

const (
	DevelopmentStageIdea      DevelopmentStage = "idea"
	DevelopmentStagePrototype DevelopmentStage = "prototype"
	DevelopmentStageTesting   DevelopmentStage = "testing"
	DevelopmentStageApproved  DevelopmentStage = "approved"
)

func ParseDevelopmentStage(s string) (DevelopmentStage, bool) {
	stages := map[string]DevelopmentStage{
		"idea":      DevelopmentStageIdea,
		"prototype": DevelopmentStagePrototype,
		"testing":   DevelopmentStageTesting,
		"approved":  DevelopmentStageApproved,
	}
	st, ok := stages[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// developmentStageNext is the full transition table. Approved is terminal;
// no regression transitions exist.
var developmentStageNext = map[DevelopmentStage][]DevelopmentStage{
	DevelopmentStageIdea:      {DevelopmentStagePrototype},
	DevelopmentStagePrototype: {DevelopmentStageTesting},
	DevelopmentStageTesting:   {DevelopmentStageApproved},
	DevelopmentStageApproved:  {},
}

func (s DevelopmentStage) CanTransition(to DevelopmentStage) bool {
	for _, next := range developmentStageNext[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s DevelopmentStage) IsTerminal() bool {
	return len(developmentStageNext[s]) == 0
}

/* Material request statuses */

type MaterialRequestStatus string

const (
	MaterialRequestStatusNew        MaterialRequestStatus = "new"
	MaterialRequestStatusInProgress MaterialRequestStatus = "in_progress"
	MaterialRequestStatusRejected   MaterialRequestStatus = "rejected"
	MaterialRequestStatusSent       MaterialRequestStatus = "sent"
	MaterialRequestStatusCompleted  MaterialRequestStatus = "completed"
)

// materialRequestNext: monotonic along new -> in_progress -> sent -> completed,
// with the terminal escape new|in_progress -> rejected. Every step is
// single-hop: sending requires an explicit accept first.
var materialRequestNext = map[MaterialRequestStatus][]MaterialRequestStatus{
	MaterialRequestStatusNew:        {MaterialRequestStatusInProgress, MaterialRequestStatusRejected},
	MaterialRequestStatusInProgress: {MaterialRequestStatusSent, MaterialRequestStatusRejected},
	MaterialRequestStatusSent:       {MaterialRequestStatusCompleted},
	MaterialRequestStatusRejected:   {},
	MaterialRequestStatusCompleted:  {},
}

func (s MaterialRequestStatus) CanTransition(to MaterialRequestStatus) bool {
	for _, next := range materialRequestNext[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s MaterialRequestStatus) IsTerminal() bool {
	return len(materialRequestNext[s]) == 0
}

/* Material shipment statuses */

type ShipmentStatus string

const (
	ShipmentStatusSentToManufacturer ShipmentStatus = "sent_to_manufacturer"
	ShipmentStatusReceived           ShipmentStatus = "received"
	ShipmentStatusConfirmed          ShipmentStatus = "confirmed"
	ShipmentStatusProblemReported    ShipmentStatus = "problem_reported"
)

// IsOpen reports whether the addressed manufacturer may still act on the
// shipment. Confirmed and problem_reported are both terminal for this core.
func (s ShipmentStatus) IsOpen() bool {
	return s == ShipmentStatusSentToManufacturer || s == ShipmentStatusReceived
}

/* Sewing order statuses */

type SewingOrderStatus string

const (
	SewingOrderStatusNew        SewingOrderStatus = "new"
	SewingOrderStatusInProgress SewingOrderStatus = "in_progress"
	SewingOrderStatusCompleted  SewingOrderStatus = "completed"
)

var sewingOrderNext = map[SewingOrderStatus][]SewingOrderStatus{
	SewingOrderStatusNew:        {SewingOrderStatusInProgress, SewingOrderStatusCompleted},
	SewingOrderStatusInProgress: {SewingOrderStatusCompleted},
	SewingOrderStatusCompleted:  {},
}

func (s SewingOrderStatus) CanTransition(to SewingOrderStatus) bool {
	for _, next := range sewingOrderNext[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s SewingOrderStatus) IsOpen() bool {
	return s == SewingOrderStatusNew || s == SewingOrderStatusInProgress
}

type MaterialStatus string

const (
	MaterialStatusPending MaterialStatus = "pending"
	MaterialStatusReady   MaterialStatus = "ready"
)

/* Sales order statuses (owned by the checkout subsystem, read-only here) */

type SalesOrderStatus string

const (
	SalesOrderStatusPending          SalesOrderStatus = "pending"
	SalesOrderStatusReadyForShipping SalesOrderStatus = "ready_for_shipping"
	SalesOrderStatusInTransit        SalesOrderStatus = "in_transit"
	SalesOrderStatusDelivered        SalesOrderStatus = "delivered"
	SalesOrderStatusCancelled        SalesOrderStatus = "cancelled"
)

// CountsAsRevenue reports whether an order participates in revenue.
func (s SalesOrderStatus) CountsAsRevenue() bool {
	switch s {
	case SalesOrderStatusDelivered, SalesOrderStatusReadyForShipping, SalesOrderStatusInTransit:
		return true
	}
	return false
}
