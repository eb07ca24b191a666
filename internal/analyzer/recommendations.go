package analyzer

// PackageState is what Recommend needs to know about one package.
type PackageState struct {
	Name      string
	Installed string // empty when not installed
	Latest    string // empty when the registry was unreachable
}

// Recommend suggests an install for every package that is not installed and
// an update for every installed package behind the latest release. verb is
// the manager's install command, e.g. ["bun", "add"]. Packages whose latest
// version is unknown are not recommended for update.
func Recommend(states []PackageState, verb []string) []Recommendation {
	recs := []Recommendation{}

	for _, s := range states {
		switch {
		case s.Installed == "":
			recs = append(recs, Recommendation{
				Action:  "install",
				Package: s.Name,
				Command: appendArg(verb, s.Name),
			})
		case s.Latest != "" && s.Installed != s.Latest:
			recs = append(recs, Recommendation{
				Action:  "update",
				Package: s.Name,
				Command: appendArg(verb, s.Name+"@latest"),
			})
		}
	}

	return recs
}

func appendArg(verb []string, arg string) []string {
	cmd := make([]string, 0, len(verb)+1)
	cmd = append(cmd, verb...)
	return append(cmd, arg)
}
