package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// File is one textual IR compilation unit: class declarations and method bodies
type File struct {
	Elements []*Element `parser:"@@*"`
}

type Element struct {
	Class  *Class  `parser:"  @@"`
	Method *Method `parser:"| @@"`
}

type Class struct {
	Pos     lexer.Position
	Name    string        `parser:"\"class\" @Ident"`
	Parent  string        `parser:"[ \"extends\" @Ident ]"`
	Traits  []string      `parser:"@( \"structure\" | \"unmanaged\" | \"staticinit\" | \"function\" | \"clinit\" )*"`
	Methods []*MethodDecl `parser:"[ \"{\" @@* \"}\" ]"`
}

type MethodDecl struct {
	Pos       lexer.Position
	Signature *Signature `parser:"\"declare\" @@"`
	Traits    []string   `parser:"@( \"static\" | \"unmanaged\" | \"managed\" | \"native\" )* \";\""`
}

type Signature struct {
	Name   string  `parser:"@Ident"`
	Params []*Type `parser:"\"(\" [ @@ { \",\" @@ } ] \")\""`
	Return *Type   `parser:"\":\" @@"`
}

type Type struct {
	Name string   `parser:"@Ident"`
	Dims []string `parser:"{ @\"[\" \"]\" }"`
}

type MethodRef struct {
	Owner     string     `parser:"@Ident \"#\""`
	Signature *Signature `parser:"@@"`
}

type FieldRef struct {
	Owner string `parser:"@Ident \"#\""`
	Name  string `parser:"@Ident"`
}

// Method is a method body
type Method struct {
	Pos       lexer.Position
	Owner     string     `parser:"\"method\" @Ident \"#\""`
	Signature *Signature `parser:"@@"`
	Traits    []string   `parser:"@( \"static\" | \"unmanaged\" | \"managed\" | \"native\" )*"`
	Blocks    []*Block   `parser:"\"{\" @@* \"}\""`
}

type Block struct {
	Pos        lexer.Position
	Label      string       `parser:"@Label \":\""`
	Exception  string       `parser:"[ \"exception\" @Var ]"`
	TryCatches []*TryCatch  `parser:"@@*"`
	Statements []*Statement `parser:"@@*"`
}

type TryCatch struct {
	Pos           lexer.Position
	ExceptionType string   `parser:"\"try\" ( @Ident | @\"*\" )"`
	Handler       string   `parser:"\"=>\" @Label"`
	Joints        []*Joint `parser:"@@*"`
}

type Joint struct {
	Receiver string   `parser:"\"joint\" @Var"`
	Sources  []string `parser:"\"(\" [ @Var { \",\" @Var } ] \")\""`
}

// Statement is a phi or an instruction, optionally assigning a variable
type Statement struct {
	Pos      lexer.Position
	Receiver string     `parser:"[ @Var \":=\" ]"`
	Phi      *Phi       `parser:"( @@"`
	Op       *Operation `parser:"| @@ )"`
	Location *Location  `parser:"[ @@ ]"`
}

type Phi struct {
	Incomings []*Incoming `parser:"\"phi\" \"[\" [ @@ { \",\" @@ } ] \"]\""`
}

type Incoming struct {
	Source string `parser:"@Label \":\""`
	Value  string `parser:"@Var"`
}

type Location struct {
	File string `parser:"\"at\" @String"`
	Line int    `parser:"@Integer"`
}

type Operation struct {
	Nop          bool        `parser:"  @\"nop\""`
	Null         bool        `parser:"| @\"null\""`
	Const        *Constant   `parser:"| \"const\" @@"`
	String       *StringLit  `parser:"| \"string\" @@"`
	Class        *Type       `parser:"| \"class\" @@"`
	Copy         string      `parser:"| @Var"`
	Binary       *Binary     `parser:"| \"binary\" @@"`
	Cast         *Cast       `parser:"| \"cast\" @@"`
	CastNumber   *CastNumber `parser:"| \"castnum\" @@"`
	InstanceOf   *InstanceOf `parser:"| \"instanceof\" @@"`
	New          string      `parser:"| \"new\" @Ident"`
	NewArray     *NewArray   `parser:"| \"newarray\" @@"`
	Get          *Get        `parser:"| \"get\" @@"`
	GetStatic    *GetStatic  `parser:"| \"getstatic\" @@"`
	Put          *Put        `parser:"| \"put\" @@"`
	PutStatic    *PutStatic  `parser:"| \"putstatic\" @@"`
	Length       string      `parser:"| \"length\" @Var"`
	Clone        string      `parser:"| \"clone\" @Var"`
	Unwrap       *Unwrap     `parser:"| \"unwrap\" @@"`
	GetElement   *GetElement `parser:"| \"getelem\" @@"`
	PutElement   *PutElement `parser:"| \"putelem\" @@"`
	Invoke       *Invoke     `parser:"| \"invoke\" @@"`
	InitClass    string      `parser:"| \"initclass\" @Ident"`
	NullCheck    string      `parser:"| \"nullcheck\" @Var"`
	BoundCheck   *BoundCheck `parser:"| \"boundcheck\" @@"`
	MonitorEnter string      `parser:"| \"monitorenter\" @Var"`
	MonitorExit  string      `parser:"| \"monitorexit\" @Var"`
	Jump         string      `parser:"| \"jump\" @Label"`
	If           *If         `parser:"| \"if\" @@"`
	IfCompare    *IfCompare  `parser:"| \"ifcmp\" @@"`
	Switch       *Switch     `parser:"| \"switch\" @@"`
	Return       *Return     `parser:"| @@"`
	Throw        string      `parser:"| \"throw\" @Var"`
}

type Constant struct {
	Kind  string `parser:"@( \"int\" | \"long\" | \"float\" | \"double\" )"`
	Value string `parser:"@( Float | Integer )"`
}

type StringLit struct {
	Value string `parser:"@String"`
}

type Binary struct {
	Operation string `parser:"@Ident"`
	Operand   string `parser:"@Ident"`
	First     string `parser:"@Var"`
	Second    string `parser:"@Var"`
}

type Cast struct {
	Value  string `parser:"@Var \"to\""`
	Target *Type  `parser:"@@"`
}

type CastNumber struct {
	Value string `parser:"@Var"`
	From  string `parser:"\"from\" @Ident"`
	To    string `parser:"\"to\" @Ident"`
}

type InstanceOf struct {
	Value string `parser:"@Var"`
	Type  *Type  `parser:"@@"`
}

type NewArray struct {
	Item *Type  `parser:"@@"`
	Size string `parser:"\"size\" @Var"`
}

type Get struct {
	Instance string    `parser:"@Var"`
	Field    *FieldRef `parser:"@@"`
	Type     *Type     `parser:"\"as\" @@"`
}

type GetStatic struct {
	Field *FieldRef `parser:"@@"`
	Type  *Type     `parser:"\"as\" @@"`
}

type Put struct {
	Instance string    `parser:"@Var"`
	Field    *FieldRef `parser:"@@"`
	Value    string    `parser:"\":=\" @Var"`
	Type     *Type     `parser:"\"as\" @@"`
}

type PutStatic struct {
	Field *FieldRef `parser:"@@"`
	Value string    `parser:"\":=\" @Var"`
	Type  *Type     `parser:"\"as\" @@"`
}

type Unwrap struct {
	Array   string `parser:"@Var"`
	Element string `parser:"\"as\" @Ident"`
}

type GetElement struct {
	Array   string `parser:"@Var \"[\""`
	Index   string `parser:"@Var \"]\""`
	Element string `parser:"\"as\" @Ident"`
}

type PutElement struct {
	Array   string `parser:"@Var \"[\""`
	Index   string `parser:"@Var \"]\""`
	Value   string `parser:"\":=\" @Var"`
	Element string `parser:"\"as\" @Ident"`
}

type Invoke struct {
	Kind      string     `parser:"@( \"special\" | \"virtual\" )"`
	Method    *MethodRef `parser:"@@"`
	Instance  string     `parser:"[ \"on\" @Var ]"`
	Arguments []string   `parser:"[ \"with\" @Var { \",\" @Var } ]"`
}

type BoundCheck struct {
	Index string `parser:"@Var"`
	Lower bool   `parser:"[ @\"lower\" ]"`
	Upper string `parser:"[ \"upper\" @Var ]"`
}

type If struct {
	Operand   string `parser:"@Var"`
	Condition string `parser:"@Ident"`
	Then      string `parser:"\"then\" @Label"`
	Else      string `parser:"\"else\" @Label"`
}

type IfCompare struct {
	First     string `parser:"@Var"`
	Second    string `parser:"@Var"`
	Condition string `parser:"@Ident"`
	Then      string `parser:"\"then\" @Label"`
	Else      string `parser:"\"else\" @Label"`
}

type Switch struct {
	Condition string         `parser:"@Var"`
	Entries   []*SwitchEntry `parser:"\"[\" [ @@ { \",\" @@ } ] \"]\""`
	Default   string         `parser:"\"default\" @Label"`
}

type SwitchEntry struct {
	Value  int    `parser:"@Integer \":\""`
	Target string `parser:"@Label"`
}

type Return struct {
	Keyword string `parser:"@\"return\""`
	Value   string `parser:"[ @Var ]"`
}
