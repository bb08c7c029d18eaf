package models

var directHireSchema = FieldSchema{
	Kind: KindDirectHire,
	Fields: []string{
		"first_name",
		"middle_name",
		"last_name",
		"email",
		"cellphone",
		"sex",
		"jobsite",
		"position",
		"employer",
		"job_type",
		"raw_salary",
		"salary_currency",
		"evaluator",
	},
	Documents: []string{
		"passport",
		"work_visa",
		"employment_contract",
		"tesda_license",
		"medical_certificate",
		"peos_certificate",
	},
	Labels: map[string]string{
		"first_name":                   "First Name",
		"middle_name":                  "Middle Name",
		"last_name":                    "Last Name",
		"email":                        "Email Address",
		"cellphone":                    "Cellphone Number",
		"sex":                          "Sex",
		"jobsite":                      "Jobsite",
		"position":                     "Position",
		"employer":                     "Employer",
		"job_type":                     "Job Type",
		"raw_salary":                   "Salary",
		"salary_currency":              "Salary Currency",
		"evaluator":                    "Evaluator",
		"document_passport":            "Passport",
		"document_work_visa":           "Work Visa",
		"document_employment_contract": "Employment Contract",
		"document_tesda_license":       "TESDA License",
		"document_medical_certificate": "Medical Certificate",
		"document_peos_certificate":    "PEOS Certificate",
	},
	FormNames: map[string]string{
		"firstName":          "first_name",
		"middleName":         "middle_name",
		"lastName":           "last_name",
		"email":              "email",
		"cellphone":          "cellphone",
		"sex":                "sex",
		"jobsite":            "jobsite",
		"position":           "position",
		"employer":           "employer",
		"jobType":            "job_type",
		"rawSalary":          "raw_salary",
		"salaryCurrency":     "salary_currency",
		"passport":           "document_passport",
		"workVisa":           "document_work_visa",
		"employmentContract": "document_employment_contract",
		"tesdaLicense":       "document_tesda_license",
		"medicalCertificate": "document_medical_certificate",
		"peosCertificate":    "document_peos_certificate",
	},
}
