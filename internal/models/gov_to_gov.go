package models

var govToGovSchema = FieldSchema{
	Kind: KindGovToGov,
	Fields: []string{
		"first_name",
		"middle_name",
		"last_name",
		"email",
		"cellphone",
		"sex",
		"birthdate",
		"height",
		"weight",
		"educational_attainment",
		"present_address",
		"preferred_country",
		"work_experience",
	},
	Documents: []string{
		"passport",
		"diploma",
		"transcript_of_records",
		"nbi_clearance",
		"medical_certificate",
	},
	Labels: map[string]string{
		"first_name":                     "First Name",
		"middle_name":                    "Middle Name",
		"last_name":                      "Last Name",
		"email":                          "Email Address",
		"cellphone":                      "Cellphone Number",
		"sex":                            "Sex",
		"birthdate":                      "Birthdate",
		"height":                         "Height",
		"weight":                         "Weight",
		"educational_attainment":         "Educational Attainment",
		"present_address":                "Present Address",
		"preferred_country":              "Preferred Country",
		"work_experience":                "Work Experience",
		"document_passport":              "Passport",
		"document_diploma":               "Diploma",
		"document_transcript_of_records": "Transcript of Records",
		"document_nbi_clearance":         "NBI Clearance",
		"document_medical_certificate":   "Medical Certificate",
	},
	FormNames: map[string]string{
		"firstName":             "first_name",
		"middleName":            "middle_name",
		"lastName":              "last_name",
		"email":                 "email",
		"cellphone":             "cellphone",
		"sex":                   "sex",
		"birthdate":             "birthdate",
		"height":                "height",
		"weight":                "weight",
		"educationalAttainment": "educational_attainment",
		"presentAddress":        "present_address",
		"preferredCountry":      "preferred_country",
		"workExperience":        "work_experience",
		"passport":              "document_passport",
		"diploma":               "document_diploma",
		"transcriptOfRecords":   "document_transcript_of_records",
		"nbiClearance":          "document_nbi_clearance",
		"medicalCertificate":    "document_medical_certificate",
	},
}
