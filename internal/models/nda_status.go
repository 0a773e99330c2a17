package models

// NDA request statuses.
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
	RequestStatusExpired  = "expired"
	// RequestStatusSigned marks a request superseded by its signed NDA.
	RequestStatusSigned = "signed"
)

// NDA document statuses.
const (
	NDAStatusDraft    = "draft"
	NDAStatusPending  = "pending"
	NDAStatusApproved = "approved"
	NDAStatusSigned   = "signed"
	NDAStatusActive   = "active"
	NDAStatusExpired  = "expired"
	NDAStatusRevoked  = "revoked"
)

// NDA types.
const (
	NDATypeStandard        = "standard"
	NDATypeMutual          = "mutual"
	NDATypeCustom          = "custom"
	NDATypeConfidentiality = "confidentiality"
)

// Access levels, ordered from least to most privileged.
const (
	AccessLevelBasic    = "basic"
	AccessLevelStandard = "standard"
	AccessLevelFull     = "full"
)

// Audit actions written to nda_audit_log.
const (
	AuditRequestCreated = "REQUEST_CREATED"
	AuditRequestExpired = "REQUEST_EXPIRED"
	AuditNDAApproved    = "NDA_APPROVED"
	AuditNDARejected    = "NDA_REJECTED"
	AuditNDASigned      = "NDA_SIGNED"
	AuditNDARevoked     = "NDA_REVOKED"
	AuditNDAExpired     = "NDA_EXPIRED"
)

// SystemActorID identifies transitions performed by the engine itself.
const SystemActorID = "system"
