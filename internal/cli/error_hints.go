package cli

import (
	"errors"
	"strings"

	"github.com/vburojevic/podtail/internal/domain"
)

func hintFor(err error) string {
	if err == nil {
		return ""
	}

	switch domain.KindOf(err) {
	case domain.KindAuthentication:
		return "Credential rejected or missing; set PODTAIL_TOKEN, --token, or token_file in ~/.podtail.yaml"
	case domain.KindNotFound:
		return "Check the namespace (-n) and pod name; the pod may have been deleted"
	case domain.KindNetwork:
		return "Dashboard API unreachable; check --server or PODTAIL_SERVER (try `podtail config show`)"
	case domain.KindServer:
		return "The dashboard backend failed; retry, or run with --verbose for details"
	case domain.KindEmptyResponse:
		return "The pod has not written any log output yet; try --follow"
	case domain.KindParse:
		return "--server may point at something other than the dashboard API"
	case domain.KindStreamFailure:
		return "The follow stream dropped; run the command again to resume"
	}

	if errors.Is(err, domain.ErrNoTarget) {
		return "Pass a pod name: podtail tail <pod> -n <namespace>"
	}
	if isConfigError(err) {
		return "Fix the value in your config file (see `podtail config path`)"
	}
	return ""
}

func isConfigError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "defaults.") || strings.Contains(msg, "token file") || strings.Contains(msg, "server url")
}
