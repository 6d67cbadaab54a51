package domain

// Accounts and categories share the same hierarchical shape. These
// adapters expose it to the balance aggregator without tying the models
// to its package.

func (a Account) NodeID() string       { return a.ID }
func (a Account) NodeParentID() string { return a.ParentID }
func (a Account) NodeIsGroup() bool    { return a.IsGroup }
func (a Account) NodeBalance() float64 { return a.NetBalance }
func (a Account) NodeType() string     { return a.Type }

func (c Category) NodeID() string       { return c.ID }
func (c Category) NodeParentID() string { return c.ParentID }
func (c Category) NodeIsGroup() bool    { return c.IsGroup }
func (c Category) NodeBalance() float64 { return c.Balance }
func (c Category) NodeType() string     { return c.Type }
