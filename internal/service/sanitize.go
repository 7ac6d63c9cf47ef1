package service

import "regexp"

// secretParamPattern matches credential-like query values in URLs embedded in error messages.
var secretParamPattern = regexp.MustCompile(`(?i)((?:token|api_?key|access_token|password)=)[^&\s"]+`)

// userinfoPattern matches the password part of user:password@host in URLs.
var userinfoPattern = regexp.MustCompile(`(://[^/\s:@"]+:)[^@\s"/]+@`)

// SanitizeError redacts credentials from error messages before they are logged.
func SanitizeError(err error) string {
	msg := secretParamPattern.ReplaceAllString(err.Error(), "${1}[REDACTED]")
	return userinfoPattern.ReplaceAllString(msg, "${1}[REDACTED]@")
}
