package chatbot

// Intent is the classified purpose of an inbound message.
type Intent string

const (
	IntentBookAppointment       Intent = "book_appointment"
	IntentCheckAvailability     Intent = "check_availability"
	IntentCancelAppointment     Intent = "cancel_appointment"
	IntentRescheduleAppointment Intent = "reschedule_appointment"
	IntentPhysicianInfo         Intent = "physician_info"
	IntentInsuranceCheck        Intent = "insurance_check"
	IntentClinicInfo            Intent = "clinic_info"
	IntentPricing               Intent = "pricing"
	IntentGreeting              Intent = "greeting"
	IntentOther                 Intent = "other"
)

var knownIntents = map[Intent]struct{}{
	IntentBookAppointment:       {},
	IntentCheckAvailability:     {},
	IntentCancelAppointment:     {},
	IntentRescheduleAppointment: {},
	IntentPhysicianInfo:         {},
	IntentInsuranceCheck:        {},
	IntentClinicInfo:            {},
	IntentPricing:               {},
	IntentGreeting:              {},
	IntentOther:                 {},
}

// ParseIntent maps a classifier label onto a known intent; anything
// unrecognized becomes IntentOther.
func ParseIntent(label string) Intent {
	intent := Intent(label)
	if _, ok := knownIntents[intent]; ok {
		return intent
	}
	return IntentOther
}

// Entities is the structured extraction record produced by the classifier.
// Empty string means the field was not present in the message.
type Entities struct {
	Specialty     string `json:"specialty"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	PhysicianName string `json:"physician_name"`
	EmiratesID    string `json:"emirates_id"`
}

// Classification is the classifier's verdict for one message.
type Classification struct {
	Intent     Intent
	Confidence float64
	Entities   Entities
}
