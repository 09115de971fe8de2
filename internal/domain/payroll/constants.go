package payroll

const (
	StatusDraft     = "draft"
	StatusApproved  = "approved"
	StatusProcessed = "processed"
	StatusPaid      = "paid"

	PTOVacation    = "vacation"
	PTOSick        = "sick"
	PTOPersonal    = "personal"
	PTOBereavement = "bereavement"
	PTOJuryDuty    = "jury_duty"
	PTOUnpaid      = "unpaid"

	MinutesPerServiceUnit = 15

	// DiscrepancyToleranceMinutes is the smallest absolute difference between
	// worked and allotted minutes that flags a shift for review.
	DiscrepancyToleranceMinutes = 5

	ActionApprove  = "approve"
	ActionProcess  = "process"
	ActionMarkPaid = "mark_paid"
)

var PTOTypes = []string{PTOVacation, PTOSick, PTOPersonal, PTOBereavement, PTOJuryDuty, PTOUnpaid}
