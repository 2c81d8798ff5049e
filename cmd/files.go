package main

// Default file names passed between stages.
const (
	fileJobs              = "naukri_jobs.csv"
	fileJobsClean         = "naukri_jobs_clean.csv"
	fileJobsWebsites      = "naukri_with_websites.csv"
	fileCompanyPages      = "company_linkedin_pages.json"
	fileProfileHits       = "linkedin_results.json"
	fileNoResults         = "no_results.json"
	fileProfiles          = "linkedin_results_cleaned.json"
	fileLeads             = "linkedin_profiles_final.json"
	fileLeadsCSV          = "linkedin_profiles_final.csv"
	fileLeadsFilled       = "linkedin_profiles_enriched.json"
	fileLeadsFilledCSV    = "linkedin_profiles_enriched.csv"
	fileClassified        = "companies_classified.json"
	fileClassifiedPartial = "companies_classified_partial.json"
)

// Stage names as recorded in the run log and accepted by run --from/--to.
const (
	stageJobsScrape     = "jobs-scrape"
	stageJobsClean      = "jobs-clean"
	stageWebsites       = "websites"
	stagePages          = "pages"
	stageProfilesSearch = "profiles-search"
	stageProfilesClean  = "profiles-clean"
	stageProfilesMerge  = "profiles-merge"
	stageProfilesFill   = "profiles-fill"
	stageEnrich         = "enrich"
	stagePushNotion     = "push-notion"
	stagePushSalesforce = "push-salesforce"
)
