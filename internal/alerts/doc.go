// Package alerts evaluates rule conditions against each published snapshot
// and delivers webhook notifications to Teams, Slack or generic HTTP targets
// when a rule fires or resolves.
package alerts
