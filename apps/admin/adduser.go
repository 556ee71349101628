package main

import (
	"context"
	"fmt"

	"github.com/Nanikworkforce/TET-Bloom/core/person"
)

// addUser provisions a person the same way the API does.
func (cli *commandLine) addUser(ctx context.Context, name, email, role, subject, grade string) error {
	res, err := cli.orchestrator.ProvisionPerson(ctx, person.NewPerson{
		Name:    name,
		Email:   email,
		Role:    role,
		Subject: subject,
		Grade:   grade,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "created %s <%s> (%s), username %q\n", res.Person.Name, res.Person.Email, res.Person.Role, res.Username)
	fmt.Fprintf(cli.out, "  external identity: %s %s\n", res.ExternalIdentity.Status, res.ExternalIdentity.Error)
	fmt.Fprintf(cli.out, "  welcome email: %s %s\n", res.WelcomeEmail.Status, res.WelcomeEmail.Error)
	return nil
}
