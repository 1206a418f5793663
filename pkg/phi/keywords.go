package phi

import (
	"regexp"
	"strings"
	"sync"

	"github.com/biomed-dq-validator/internal/domain"
)

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// NormalizeColumnName lowercases a column name and splits it into words on
// underscores, hyphens, dots, slashes, whitespace and camelCase boundaries.
func NormalizeColumnName(name string) []string {
	name = camelBoundary.ReplaceAllString(name, "$1 $2")
	name = strings.ToLower(name)
	name = strings.NewReplacer("_", " ", "-", " ", ".", " ", "/", " ").Replace(name)
	return strings.Fields(name)
}

// MatchesKeyword reports whether a column name contains the keyword phrase as
// a run of whole words, or whether both collapse to the same compact form
// ("PatientName" and "patientname" match "patient name").
func MatchesKeyword(column, phrase string) bool {
	words := NormalizeColumnName(column)
	want := strings.Fields(strings.ToLower(phrase))
	if len(words) == 0 || len(want) == 0 {
		return false
	}
	if strings.Join(words, "") == strings.Join(want, "") {
		return true
	}
	for i := 0; i+len(want) <= len(words); i++ {
		match := true
		for j, w := range want {
			if words[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// MatchesAny reports whether the column matches any keyword phrase.
func MatchesAny(column string, phrases []string) bool {
	for _, p := range phrases {
		if MatchesKeyword(column, p) {
			return true
		}
	}
	return false
}

// CategoryKeywords returns the column-name phrases for each PHI category.
// The table is built once and must not be modified.
var CategoryKeywords = sync.OnceValue(func() map[domain.PHICategory][]string {
	return map[domain.PHICategory][]string{
		domain.PHI_NAMES: {
			"name", "first name", "last name", "full name", "patient name", "middle name",
			"given name", "family name", "surname", "fname", "lname", "maiden name",
		},
		domain.PHI_DATES: {
			"dob", "date of birth", "birth date", "birthdate", "birthday",
			"death date", "date of death", "dod", "admission date", "discharge date",
		},
		domain.PHI_PHONE: {"phone", "telephone", "phone number", "mobile", "cell phone", "cellphone", "tel"},
		domain.PHI_FAX:   {"fax", "fax number"},
		domain.PHI_EMAIL: {"email", "e mail", "email address"},
		domain.PHI_SSN:   {"ssn", "social security", "social security number"},
		domain.PHI_MRN: {
			"mrn", "medical record", "medical record number", "record number", "chart number",
		},
		domain.PHI_ACCOUNT: {"account", "account number", "acct", "billing account"},
		domain.PHI_LICENSE: {
			"license", "licence", "license number", "certificate", "certificate number",
			"drivers license", "dea", "npi",
		},
		domain.PHI_VEHICLE:     {"vin", "vehicle", "vehicle id", "license plate", "plate number"},
		domain.PHI_URL:         {"url", "website", "web address", "homepage"},
		domain.PHI_IP:          {"ip", "ip address", "ipaddr", "ipv4", "ipv6"},
		domain.PHI_ZIP:         {"zip", "zipcode", "zip code", "postal", "postal code", "postcode"},
		domain.PHI_HEALTH_PLAN: {"health plan", "insurance id", "member id", "beneficiary", "policy number", "medicaid", "medicare id"},
		domain.PHI_DEVICE:      {"device id", "device serial", "serial number", "udi"},
		domain.PHI_BIOMETRIC:   {"fingerprint", "retina", "voiceprint", "biometric"},
		domain.PHI_PHOTO:       {"photo", "photograph", "face image", "headshot"},
		domain.PHI_GEOGRAPHIC: {
			"address", "street", "street address", "home address", "city", "county",
			"town", "neighborhood", "latitude", "longitude",
		},
	}
})

// DirectIdentifierKeywords are column-name phrases that identify an
// individual on their own.
var DirectIdentifierKeywords = sync.OnceValue(func() []string {
	return []string{
		"name", "first name", "last name", "full name", "patient name", "surname",
		"fname", "lname", "ssn", "social security", "email", "phone", "telephone",
		"mobile", "fax", "mrn", "medical record", "address", "street", "health plan",
		"insurance id", "member id", "account", "account number", "license",
		"certificate", "vin", "license plate", "device id", "serial number", "url",
		"ip address", "photo", "fingerprint", "biometric", "dob", "date of birth",
		"birth date", "birthdate",
	}
})

// QuasiIdentifierKeywords are column-name phrases that can re-identify an
// individual in combination.
var QuasiIdentifierKeywords = sync.OnceValue(func() []string {
	return []string{
		"age", "sex", "gender", "race", "ethnicity", "ethnic", "zip", "zipcode", "zip3",
		"zip code", "postal", "postal code", "education", "educ", "marital", "marital status",
		"occupation", "birth year", "year of birth", "state", "country", "religion",
		"ptgender", "ptraccat", "ptethcat", "pteducat", "ptmarry", "ptage",
	}
})

// DirectIdentifierColumns returns the columns whose names match a direct identifier.
func DirectIdentifierColumns(columns []string) []string {
	var out []string
	for _, c := range columns {
		if MatchesAny(c, DirectIdentifierKeywords()) {
			out = append(out, c)
		}
	}
	return out
}

// QuasiIdentifierColumns returns the columns whose names match a quasi-identifier.
func QuasiIdentifierColumns(columns []string) []string {
	var out []string
	for _, c := range columns {
		if MatchesAny(c, QuasiIdentifierKeywords()) {
			out = append(out, c)
		}
	}
	return out
}
