package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tokenledger/internal/account"
	"github.com/roach88/tokenledger/internal/ledger"
)

// NullAccount is the scenario keyword for the null account.
const NullAccount = "null"

// Scenario defines a ledger conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Genesis initializes the ledger.
	Genesis Genesis `yaml:"genesis"`

	// Accounts maps aliases to 0x addresses.
	Accounts map[string]string `yaml:"accounts"`

	// Setup steps run before the flow and must all succeed.
	// They are not part of the trace.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the operations under test.
	Flow []Step `yaml:"flow"`

	// Assertions validate final state and the event log.
	Assertions []Assertion `yaml:"assertions"`
}

// Genesis mirrors the genesis document, with creator as an account reference.
type Genesis struct {
	Name    string `yaml:"name"`
	Symbol  string `yaml:"symbol"`
	Scale   uint8  `yaml:"scale"`
	Supply  string `yaml:"supply"`
	Creator string `yaml:"creator"`
}

// Step is one ledger operation.
type Step struct {
	Op      string `yaml:"op"`
	Caller  string `yaml:"caller"`
	From    string `yaml:"from,omitempty"`
	To      string `yaml:"to,omitempty"`
	Spender string `yaml:"spender,omitempty"`
	Value   string `yaml:"value"`

	// Expect specifies the expected outcome. If nil, the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Error is the expected rejection code (e.g. "INSUFFICIENT_BALANCE").
	// Empty means success.
	Error string `yaml:"error"`
}

// Assertion validates final state or the event log.
type Assertion struct {
	Type string `yaml:"type"`

	// Account is used by balance.
	Account string `yaml:"account,omitempty"`

	// Owner and Spender are used by allowance.
	Owner   string `yaml:"owner,omitempty"`
	Spender string `yaml:"spender,omitempty"`

	// Expect is the expected amount (balance, allowance, total_supply).
	Expect string `yaml:"expect,omitempty"`

	// Count is the expected number of events (event_count).
	Count int `yaml:"count,omitempty"`

	// Kind, From, To, and Value describe an expected event (event).
	// Unset fields match anything.
	Kind  string `yaml:"kind,omitempty"`
	From  string `yaml:"from,omitempty"`
	To    string `yaml:"to,omitempty"`
	Value string `yaml:"value,omitempty"`
}

// Operation names.
const (
	OpTransfer          = "transfer"
	OpApprove           = "approve"
	OpTransferFrom      = "transferFrom"
	OpIncreaseAllowance = "increaseAllowance"
	OpDecreaseAllowance = "decreaseAllowance"
)

// Assertion type constants.
const (
	AssertBalance      = "balance"
	AssertAllowance    = "allowance"
	AssertTotalSupply  = "total_supply"
	AssertEventCount   = "event_count"
	AssertEvent        = "event"
	AssertConservation = "conservation"
	AssertReplay       = "replay"
)

var knownCodes = map[string]bool{
	string(ledger.CodeInvalidMetadata):       true,
	string(ledger.CodeZeroAddressRecipient):  true,
	string(ledger.CodeZeroAddressSpender):    true,
	string(ledger.CodeInsufficientBalance):   true,
	string(ledger.CodeInsufficientAllowance): true,
	string(ledger.CodeArithmeticOverflow):    true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is invalid.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarios returns every .yaml/.yml file under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		ext := filepath.Ext(path)
		if !info.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find scenarios: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// resolve turns an account reference into an address.
func (s *Scenario) resolve(ref string) (account.Address, error) {
	if ref == NullAccount {
		return account.Zero, nil
	}
	if addr, ok := s.Accounts[ref]; ok {
		return account.ParseAddress(addr)
	}
	if strings.HasPrefix(ref, "0x") || strings.HasPrefix(ref, "0X") {
		return account.ParseAddress(ref)
	}
	return account.Address{}, fmt.Errorf("unknown account %q", ref)
}

// alias returns the scenario alias for a, or its hex form.
func (s *Scenario) alias(a account.Address) string {
	if a.IsZero() {
		return NullAccount
	}
	names := make([]string, 0, len(s.Accounts))
	for name := range s.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if addr, err := account.ParseAddress(s.Accounts[name]); err == nil && addr == a {
			return name
		}
	}
	return a.String()
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	for name, addr := range s.Accounts {
		if name == NullAccount {
			return fmt.Errorf("accounts: %q is reserved", NullAccount)
		}
		if _, err := account.ParseAddress(addr); err != nil {
			return fmt.Errorf("accounts.%s: %w", name, err)
		}
	}

	if err := validateGenesis(s); err != nil {
		return err
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(s, fmt.Sprintf("setup[%d]", i), step); err != nil {
			return err
		}
		if step.Expect != nil && step.Expect.Error != "" {
			return fmt.Errorf("setup[%d]: setup steps must succeed", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(s, fmt.Sprintf("flow[%d]", i), step); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(s, i, a); err != nil {
			return err
		}
	}

	return nil
}

func validateGenesis(s *Scenario) error {
	g := s.Genesis
	if g.Supply == "" {
		return fmt.Errorf("genesis.supply is required")
	}
	if _, err := uint256.FromDecimal(g.Supply); err != nil {
		return fmt.Errorf("genesis.supply: %w", err)
	}
	if g.Creator == "" {
		return fmt.Errorf("genesis.creator is required")
	}
	if _, err := s.resolve(g.Creator); err != nil {
		return fmt.Errorf("genesis.creator: %w", err)
	}
	// Name and symbol are checked by the ledger itself.
	return nil
}

func validateStep(s *Scenario, where string, step Step) error {
	refs := map[string]string{"caller": step.Caller}
	switch step.Op {
	case OpTransfer:
		refs["to"] = step.To
	case OpApprove, OpIncreaseAllowance, OpDecreaseAllowance:
		refs["spender"] = step.Spender
	case OpTransferFrom:
		refs["from"] = step.From
		refs["to"] = step.To
	case "":
		return fmt.Errorf("%s: op is required", where)
	default:
		return fmt.Errorf("%s: unknown op %q", where, step.Op)
	}

	for field, ref := range refs {
		if ref == "" {
			return fmt.Errorf("%s: %s is required for %s", where, field, step.Op)
		}
		if _, err := s.resolve(ref); err != nil {
			return fmt.Errorf("%s.%s: %w", where, field, err)
		}
	}

	if step.Value == "" {
		return fmt.Errorf("%s: value is required", where)
	}
	if _, err := uint256.FromDecimal(step.Value); err != nil {
		return fmt.Errorf("%s.value: %w", where, err)
	}

	if step.Expect != nil && step.Expect.Error != "" && !knownCodes[step.Expect.Error] {
		return fmt.Errorf("%s.expect: unknown error code %q", where, step.Expect.Error)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(s *Scenario, index int, a Assertion) error {
	where := fmt.Sprintf("assertions[%d]", index)
	needAmount := func() error {
		if a.Expect == "" {
			return fmt.Errorf("%s: expect is required for %s", where, a.Type)
		}
		if _, err := uint256.FromDecimal(a.Expect); err != nil {
			return fmt.Errorf("%s.expect: %w", where, err)
		}
		return nil
	}
	needRef := func(field, ref string) error {
		if ref == "" {
			return fmt.Errorf("%s: %s is required for %s", where, field, a.Type)
		}
		if _, err := s.resolve(ref); err != nil {
			return fmt.Errorf("%s.%s: %w", where, field, err)
		}
		return nil
	}

	switch a.Type {
	case AssertBalance:
		if err := needRef("account", a.Account); err != nil {
			return err
		}
		return needAmount()
	case AssertAllowance:
		if err := needRef("owner", a.Owner); err != nil {
			return err
		}
		if err := needRef("spender", a.Spender); err != nil {
			return err
		}
		return needAmount()
	case AssertTotalSupply:
		return needAmount()
	case AssertEventCount:
		if a.Count < 0 {
			return fmt.Errorf("%s: count must be non-negative", where)
		}
	case AssertEvent:
		if a.Kind != "" && a.Kind != "Transfer" && a.Kind != "Approval" {
			return fmt.Errorf("%s: unknown event kind %q", where, a.Kind)
		}
		for field, ref := range map[string]string{"from": a.From, "to": a.To} {
			if ref == "" {
				continue
			}
			if _, err := s.resolve(ref); err != nil {
				return fmt.Errorf("%s.%s: %w", where, field, err)
			}
		}
		if a.Value != "" {
			if _, err := uint256.FromDecimal(a.Value); err != nil {
				return fmt.Errorf("%s.value: %w", where, err)
			}
		}
	case AssertConservation, AssertReplay:
	case "":
		return fmt.Errorf("%s: type is required", where)
	default:
		return fmt.Errorf("%s: unknown assertion type %q", where, a.Type)
	}
	return nil
}
