package batch

var OverdueSummary = overdueSummary
