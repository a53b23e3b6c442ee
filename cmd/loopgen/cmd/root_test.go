package cmd

import "testing"

func TestSubcommands(t *testing.T) {
	for _, name := range []string{"generate", "workflow", "watch"} {
		c, _, err := rootCmd.Find([]string{name})
		if err != nil || c.Name() != name {
			t.Fatalf("subcommand %s not registered: %v", name, err)
		}
	}
}

func TestLoopFlags(t *testing.T) {
	for _, c := range []string{"generate", "workflow"} {
		cmd, _, _ := rootCmd.Find([]string{c})
		for _, flag := range []string{"lat", "lon"} {
			f := cmd.Flags().Lookup(flag)
			if f == nil {
				t.Fatalf("%s: missing --%s", c, flag)
			}
			if _, ok := f.Annotations["cobra_annotation_bash_completion_one_required_flag"]; !ok {
				t.Errorf("%s: --%s should be required", c, flag)
			}
		}
		if got := cmd.Flags().Lookup("miles").DefValue; got != "3" {
			t.Errorf("%s: miles default = %s, want 3", c, got)
		}
	}
	if cmd, _, _ := rootCmd.Find([]string{"watch"}); cmd.Flags().Lookup("lat") != nil {
		t.Error("watch should not take loop flags")
	}
}
