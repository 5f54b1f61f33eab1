package rule

// applicableOS lists the GOOS values whose account database uses the
// colon-delimited passwd format this rule understands.
var applicableOS = map[string]bool{
	"linux":   true,
	"freebsd": true,
	"solaris": true,
	"darwin":  true,
}

// Applicable reports whether the rule runs on the given GOOS at all.
// On other platforms report and fix must not touch anything.
func Applicable(goos string) bool {
	return applicableOS[goos]
}
