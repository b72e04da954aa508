package cli

import (
	"fmt"
	"io"
)

// CompletionCmd generates shell completions
type CompletionCmd struct {
	Shell string `arg:"" enum:"bash,zsh,fish" help:"Shell type (bash, zsh, fish)"`
}

// Run executes the completion command
func (c *CompletionCmd) Run(globals *Globals) error {
	var script string
	switch c.Shell {
	case "bash":
		script = bashCompletion
	case "zsh":
		script = zshCompletion
	case "fish":
		script = fishCompletion
	default:
		return fmt.Errorf("unsupported shell: %s", c.Shell)
	}
	_, err := io.WriteString(globals.Stdout, script)
	return err
}

const bashCompletion = `# podtail bash completion script
# Add to ~/.bashrc:
#   eval "$(podtail completion bash)"

_podtail_completions() {
    local cur prev
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    local commands="tail export ui config version completion"
    local global_flags="-f --format -q --quiet -v --verbose --server --token"
    local target_flags="-n --namespace -t --tail"

    case "${prev}" in
        podtail)
            COMPREPLY=($(compgen -W "${commands}" -- "${cur}"))
            return
            ;;
        -f|--format)
            COMPREPLY=($(compgen -W "ndjson text" -- "${cur}"))
            return
            ;;
        -d|--dir)
            COMPREPLY=($(compgen -d -- "${cur}"))
            return
            ;;
        config)
            COMPREPLY=($(compgen -W "show path generate" -- "${cur}"))
            return
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "${cur}"))
            return
            ;;
    esac

    case "${COMP_WORDS[1]}" in
        tail)
            COMPREPLY=($(compgen -W "${global_flags} ${target_flags} -F --follow" -- "${cur}"))
            ;;
        export|ui)
            COMPREPLY=($(compgen -W "${global_flags} ${target_flags} -d --dir" -- "${cur}"))
            ;;
        *)
            COMPREPLY=($(compgen -W "${global_flags}" -- "${cur}"))
            ;;
    esac
}

complete -F _podtail_completions podtail
`

const zshCompletion = `#compdef podtail
# podtail zsh completion script
# Add to ~/.zshrc:
#   eval "$(podtail completion zsh)"

_podtail() {
    local -a commands
    commands=(
        'tail:Print the recent log of a pod and optionally follow it'
        'export:Save the recent log of a pod to a file'
        'ui:Interactive log viewer'
        'config:Show or manage configuration'
        'version:Show version information'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '(-f --format)'{-f,--format}'[Output format]:format:(ndjson text)' \
        '(-q --quiet)'{-q,--quiet}'[Suppress non-log output]' \
        '(-v --verbose)'{-v,--verbose}'[Show debug diagnostics]' \
        '--server[Dashboard API base URL]:url:' \
        '--token[Bearer token]:token:' \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                tail|export|ui)
                    _arguments \
                        '(-n --namespace)'{-n,--namespace}'[Namespace of the pod]:namespace:' \
                        '(-t --tail)'{-t,--tail}'[Number of recent lines]:lines:' \
                        '(-F --follow)'{-F,--follow}'[Keep streaming new lines]' \
                        '(-d --dir)'{-d,--dir}'[Export directory]:dir:_files -/' \
                        '1:pod:'
                    ;;
                config)
                    _values 'subcommand' show path generate
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_podtail "$@"
`

const fishCompletion = `# podtail fish completion script
# Save to ~/.config/fish/completions/podtail.fish:
#   podtail completion fish > ~/.config/fish/completions/podtail.fish

complete -c podtail -f
complete -c podtail -n '__fish_use_subcommand' -a tail -d 'Print the recent log of a pod'
complete -c podtail -n '__fish_use_subcommand' -a export -d 'Save the recent log of a pod to a file'
complete -c podtail -n '__fish_use_subcommand' -a ui -d 'Interactive log viewer'
complete -c podtail -n '__fish_use_subcommand' -a config -d 'Show or manage configuration'
complete -c podtail -n '__fish_use_subcommand' -a version -d 'Show version information'
complete -c podtail -n '__fish_use_subcommand' -a completion -d 'Generate shell completions'

complete -c podtail -s f -l format -xa 'ndjson text' -d 'Output format'
complete -c podtail -s q -l quiet -d 'Suppress non-log output'
complete -c podtail -s v -l verbose -d 'Show debug diagnostics'
complete -c podtail -l server -x -d 'Dashboard API base URL'
complete -c podtail -l token -x -d 'Bearer token'

complete -c podtail -n '__fish_seen_subcommand_from tail export ui' -s n -l namespace -x -d 'Namespace of the pod'
complete -c podtail -n '__fish_seen_subcommand_from tail export ui' -s t -l tail -x -d 'Number of recent lines'
complete -c podtail -n '__fish_seen_subcommand_from tail' -s F -l follow -d 'Keep streaming new lines'
complete -c podtail -n '__fish_seen_subcommand_from export ui' -s d -l dir -ra '(__fish_complete_directories)' -d 'Export directory'
complete -c podtail -n '__fish_seen_subcommand_from config' -a 'show path generate'
complete -c podtail -n '__fish_seen_subcommand_from completion' -a 'bash zsh fish'
`
