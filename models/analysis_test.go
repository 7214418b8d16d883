package models

import "testing"

func TestPreferredMethod(t *testing.T) {
	cases := []struct {
		name     string
		detected []InstallMethod
		want     InstallMethod
	}{
		{"pip wins over docker", []InstallMethod{MethodDocker, MethodPip}, MethodPip},
		{"poetry over npm", []InstallMethod{MethodNpm, MethodPoetry}, MethodPoetry},
		{"docker over make", []InstallMethod{MethodMake, MethodDocker}, MethodDocker},
		{"single method", []InstallMethod{MethodCargo}, MethodCargo},
		{"none detected", nil, MethodManual},
	}
	for _, c := range cases {
		if got := PreferredMethod(c.detected); got != c.want {
			t.Errorf("%s: PreferredMethod = %s, want %s", c.name, got, c.want)
		}
	}
}

func TestGradeForScore(t *testing.T) {
	cases := []struct {
		score float64
		want  QualityGrade
	}{
		{0.95, GradeExcellent},
		{0.8, GradeExcellent},
		{0.7, GradeGood},
		{0.6, GradeGood},
		{0.5, GradeFair},
		{0.4, GradeFair},
		{0.1, GradePoor},
		{0, GradeUnknown},
	}
	for _, c := range cases {
		if got := GradeForScore(c.score); got != c.want {
			t.Errorf("GradeForScore(%.2f) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestDependencyNames(t *testing.T) {
	a := &Analysis{Dependencies: []Dependency{
		{Name: "requests"},
		{Name: "flask"},
	}}
	names := a.DependencyNames()
	if len(names) != 2 || names[0] != "requests" || names[1] != "flask" {
		t.Errorf("DependencyNames = %v", names)
	}
}
