package models

var balikManggagawaSchema = FieldSchema{
	Kind: KindBalikManggagawa,
	Fields: []string{
		"first_name",
		"middle_name",
		"last_name",
		"email",
		"cellphone",
		"sex",
		"destination_country",
		"employer",
		"position",
		"clearance_type",
		"departure_date",
		"months_years_abroad",
	},
	Documents: []string{
		"passport",
		"work_visa",
		"employment_contract",
		"departure_ticket",
		"owwa_membership",
	},
	Labels: map[string]string{
		"first_name":                   "First Name",
		"middle_name":                  "Middle Name",
		"last_name":                    "Last Name",
		"email":                        "Email Address",
		"cellphone":                    "Cellphone Number",
		"sex":                          "Sex",
		"destination_country":          "Destination Country",
		"employer":                     "Employer",
		"position":                     "Position",
		"clearance_type":               "Clearance Type",
		"departure_date":               "Departure Date",
		"months_years_abroad":          "Time Abroad",
		"document_passport":            "Passport",
		"document_work_visa":           "Work Visa",
		"document_employment_contract": "Employment Contract",
		"document_departure_ticket":    "Departure Ticket",
		"document_owwa_membership":     "OWWA Membership",
	},
	FormNames: map[string]string{
		"firstName":          "first_name",
		"middleName":         "middle_name",
		"lastName":           "last_name",
		"email":              "email",
		"cellphone":          "cellphone",
		"sex":                "sex",
		"destinationCountry": "destination_country",
		"employer":           "employer",
		"position":           "position",
		"clearanceType":      "clearance_type",
		"departureDate":      "departure_date",
		"monthsYearsAbroad":  "months_years_abroad",
		"passport":           "document_passport",
		"workVisa":           "document_work_visa",
		"employmentContract": "document_employment_contract",
		"departureTicket":    "document_departure_ticket",
		"owwaMembership":     "document_owwa_membership",
	},
}
