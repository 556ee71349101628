package provision

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/credential"
	"github.com/Nanikworkforce/TET-Bloom/core/identity"
	"github.com/Nanikworkforce/TET-Bloom/core/mailer"
	"github.com/Nanikworkforce/TET-Bloom/core/person"
	"github.com/Nanikworkforce/TET-Bloom/core/teacher"
)

var (
	NowFunc          = time.Now                   // mockable
	GeneratePassword = credential.GeneratePassword // mockable

	defaultMailTimeout = 10 * time.Second
)

// StepStatus is the outcome of a best-effort step.
type StepStatus string

const (
	StepDone    StepStatus = "done"
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
)

type StepOutcome struct {
	Status StepStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
	Err    error      `json:"-"`
}

func done() StepOutcome { return StepOutcome{Status: StepDone} }

func skipped(err error) StepOutcome {
	return StepOutcome{Status: StepSkipped, Err: err}
}

func failed(err error) StepOutcome {
	return StepOutcome{Status: StepFailed, Error: err.Error(), Err: err}
}

// Result describes what ProvisionPerson created.
// A successful Result does not mean the person can log in elsewhere or received the welcome email:
// check ExternalIdentity and WelcomeEmail.
type Result struct {
	Person           person.Person    `json:"person"`
	Teacher          *teacher.Teacher `json:"teacher,omitempty"`
	CredentialID     string           `json:"credential_id"`
	Username         string           `json:"username"`
	ExternalID       string           `json:"external_id,omitempty"`
	ExternalIdentity StepOutcome      `json:"external_identity"`
	WelcomeEmail     StepOutcome      `json:"welcome_email"`
}

// Orchestrator runs the new person workflow across the directory, the credential store,
// the external identity provider and the mail transport.
type Orchestrator struct {
	conf        *core.Config
	logger      core.Logger
	validate    *validator.Validate
	people      person.Repository
	teachers    teacher.Repository
	credentials credential.Repository
	provisioner *identity.Provisioner
	composer    *mailer.Composer
	transport   core.MailTransport
	mailTimeout time.Duration
}

func NewOrchestrator(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	people person.Repository,
	teachers teacher.Repository,
	credentials credential.Repository,
	provisioner *identity.Provisioner,
	composer *mailer.Composer,
	transport core.MailTransport,
) *Orchestrator {
	vala.BeginValidation().Validate(
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(validate, "validate"),
		vala.IsNotNil(people, "people"),
		vala.IsNotNil(teachers, "teachers"),
		vala.IsNotNil(credentials, "credentials"),
		vala.IsNotNil(provisioner, "provisioner"),
		vala.IsNotNil(composer, "composer"),
		vala.IsNotNil(transport, "transport"),
	).CheckAndPanic()

	timeout := conf.Mail.Timeout
	if timeout <= 0 {
		timeout = defaultMailTimeout
	}
	return &Orchestrator{
		conf:        conf,
		logger:      logger,
		validate:    validate,
		people:      people,
		teachers:    teachers,
		credentials: credentials,
		provisioner: provisioner,
		composer:    composer,
		transport:   transport,
		mailTimeout: timeout,
	}
}

// ProvisionPerson creates a Person with its local credential, registers it with the external
// identity provider and sends the welcome email.
//
// Duplicate, storage and credential failures abort the workflow and are returned as *core.Error.
// Once the credential exists, provider and mail failures are only logged and reported in the Result.
// A teacher's Person and profile are stored together. A failure after that leaves them in place.
func (o *Orchestrator) ProvisionPerson(ctx context.Context, np person.NewPerson) (Result, error) {
	const op = "provision.ProvisionPerson"

	if err := np.Validate(o.validate); err != nil {
		return Result{}, err
	}
	if err := o.checkDuplicate(ctx, op, np.Email); err != nil {
		return Result{}, err
	}

	// directory
	now := NowFunc().UTC()
	p := person.Person{
		Name:      np.Name,
		Email:     np.Email,
		Role:      np.Role,
		Status:    np.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var (
		t   teacher.Teacher
		err error
	)
	if p.IsTeacher() {
		p, t, err = o.teachers.CreateTeacherPerson(ctx, p, teacher.Teacher{
			Name:              p.Name,
			Subject:           np.Subject,
			Grade:             np.Grade,
			YearsOfExperience: np.YearsOfExperience,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	} else {
		p, err = o.people.CreatePerson(ctx, p)
	}
	if err != nil {
		if errors.Cause(err) == person.ErrEmailExists {
			return Result{}, duplicateError(op)
		}
		return Result{}, core.NewError(core.KindStorage, op, errors.Wrap(err, "creating person"))
	}
	res := Result{Person: p}
	if p.IsTeacher() {
		res.Teacher = &t
	}

	// local credential
	otp := GeneratePassword(credential.OneTimePasswordLength)
	hash, err := credential.HashPassword(otp)
	if err != nil {
		return res, core.NewError(core.KindCredential, op, errors.Wrap(err, "hashing one-time password"))
	}
	cred, err := o.provisioner.CreateLocalCredential(ctx, p.ID, p.Email, hash)
	if err != nil {
		o.logger.Error("creating credential for person "+p.ID, err)
		return res, core.NewError(core.KindCredential, op, err)
	}
	res.CredentialID = cred.ID
	res.Username = cred.Username

	res.ExternalID, res.ExternalIdentity = o.registerExternal(ctx, p, cred.ID, otp)
	res.WelcomeEmail = o.sendWelcome(ctx, p, otp)
	return res, nil
}

func (o *Orchestrator) checkDuplicate(ctx context.Context, op, email string) error {
	_, err := o.people.GetPersonByEmail(ctx, email)
	switch errors.Cause(err) {
	case nil:
		return duplicateError(op)
	case person.ErrNotFound:
	default:
		return core.NewError(core.KindStorage, op, errors.Wrap(err, "checking person email"))
	}

	_, err = o.credentials.GetCredentialByEmail(ctx, email)
	switch errors.Cause(err) {
	case nil:
		return duplicateError(op)
	case credential.ErrNotFound:
	default:
		return core.NewError(core.KindStorage, op, errors.Wrap(err, "checking credential email"))
	}
	return nil
}

func duplicateError(op string) error {
	return core.NewError(core.KindDuplicateIdentity, op, core.NewValidationError(
		person.ErrEmailExists,
		core.FieldError{Field: "email", Error: person.ErrEmailExists.Error()},
	))
}

func (o *Orchestrator) registerExternal(ctx context.Context, p person.Person, credentialID, otp string) (string, StepOutcome) {
	externalID, err := o.provisioner.RegisterExternalIdentity(ctx, p.Email, otp, p.Name, p.Role)

	// the account may exist even when its profile could not be written
	if externalID != "" {
		if aerr := o.provisioner.AttachExternalID(ctx, credentialID, externalID); aerr != nil {
			o.logger.Error("attaching external id to credential "+credentialID, aerr)
		}
	}

	switch {
	case err == nil:
		return externalID, done()
	case core.KindOf(err) == core.KindConfigurationDisabled:
		o.logger.Debug("external identity provider disabled, skipping registration of " + p.Email)
		return "", skipped(err)
	default:
		o.logger.Error("registering external identity of "+p.Email, err)
		return externalID, failed(err)
	}
}

func (o *Orchestrator) sendWelcome(ctx context.Context, p person.Person, otp string) StepOutcome {
	const op = "provision.sendWelcome"

	if !o.conf.Notification(core.NoticeWelcome).Enabled {
		o.logger.Debug("welcome notice disabled, skipping " + p.Email)
		return skipped(nil)
	}

	content, err := o.composer.Compose(mailer.WelcomeNotice, mailer.Fields{
		RecipientName:     p.Name,
		Email:             p.Email,
		TemporaryPassword: otp,
	})
	if err != nil {
		err = core.NewError(core.KindTransport, op, errors.Wrap(err, "composing welcome email"))
		o.logger.Error("composing welcome email for "+p.Email, err)
		return failed(err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.mailTimeout)
	defer cancel()

	err = o.transport.Send(ctx, core.EmailMessage{
		To:          []mail.Address{{Name: p.Name, Address: p.Email}},
		Subject:     content.Subject,
		TextContent: content.Text,
		HTMLContent: content.HTML,
	})
	switch errors.Cause(err) {
	case nil:
		return done()
	case core.ErrMailDisabled:
		o.logger.Debug("mail delivery disabled, skipping welcome email to " + p.Email)
		return skipped(err)
	}
	err = core.NewError(core.KindTransport, op, errors.Wrap(err, "sending welcome email"))
	o.logger.Error("sending welcome email to "+p.Email, err)
	return failed(err)
}
