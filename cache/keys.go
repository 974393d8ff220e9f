package cache

import "strconv"

// Canonical single entity keys. Derived keys for a user or company are an
// enumerated set so invalidation never needs a wildcard scan.

func UserProfileKey(userID int64) string {
	return "user:profile:" + strconv.FormatInt(userID, 10)
}

func UserResumesKey(userID int64) string {
	return "user:resumes:" + strconv.FormatInt(userID, 10)
}

func UserApplicationsKey(userID int64) string {
	return "user:applications:" + strconv.FormatInt(userID, 10)
}

// UserKeys returns every key derived from a user.
func UserKeys(userID int64) []string {
	return []string{
		UserProfileKey(userID),
		UserResumesKey(userID),
		UserApplicationsKey(userID),
	}
}

func CompanyProfileKey(companyID int64) string {
	return "company:profile:" + strconv.FormatInt(companyID, 10)
}

func CompanyJobsKey(companyID int64) string {
	return "company:jobs:" + strconv.FormatInt(companyID, 10)
}

// CompanyKeys returns every key derived from a company.
func CompanyKeys(companyID int64) []string {
	return []string{
		CompanyProfileKey(companyID),
		CompanyJobsKey(companyID),
	}
}

// JobKey is the single job key. It contains the job tag so substring
// invalidation by tag also matches it.
func JobKey(jobID int64) string {
	return "job:jobId:" + strconv.FormatInt(jobID, 10)
}
