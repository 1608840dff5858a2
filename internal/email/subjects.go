package email

const (
	subjectQuoteFmt          = "Quote: %s"
	subjectQuoteApprovedFmt  = "Quote approved: %s"
	subjectQuoteDeclinedFmt  = "Quote declined: %s"
	subjectVisitScheduledFmt = "Visit scheduled: %s"
)
