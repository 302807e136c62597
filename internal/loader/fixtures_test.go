package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	accidents2021 = `"Num_Acc";"jour";"mois";"an";"hrmn";"lum";"dep";"com";"agg";"int";"atm";"col";"adr";"lat";"long"
"202100000001";"30";"11";"2021";"07:32";"2";"30";"30319";"1";"1";"1";"1";"CD 981";"44,0389580000";"4,3480220000"
"202100000002";"25";"09";"2021";"14:20";"1";"51";"51544";"1";"3";"1";"3";"";"49,2421290000";"0"
`
	locations2021 = `"Num_Acc";"catr";"voie";"v1";"v2";"circ";"nbv";"vosp";"prof";"pr";"pr1";"plan";"larrout";"surf";"infra";"situ";"vma"
"202100000001";"3";"981";"0";"";"2";"2";"0";"1";"(1)";"(1)";"1";"-1";"1";"0";"1";"80"
`
	vehicles2021 = `"Num_Acc";"id_vehicule";"num_veh";"senc";"catv";"obs";"obsm";"choc";"manv";"motor";"occutc"
"202100000001";"201 764";"B01";"1";"7";"0";"2";"1";"1";"1";""
"202100000001";"201 765";"A01";"1";"7";"0";"2";"2";"15";"1";""
"202100000002";"201 766";"A01";"2";"7";"0";"2";"1";"1";"1";""
`
	occupants2021 = `"Num_Acc";"id_vehicule";"num_veh";"place";"catu";"grav";"sexe";"an_nais";"trajet"
"202100000001";"201 764";"B01";"1";"1";"3";"1";"2000";"1"
"202100000002";"201 766";"A01";"1";"1";"1";"2";"1978";"5"
`

	// Legacy layout: comma separated, Windows-1252, compact coordinates,
	// two-digit year.
	accidents2010 = "Num_Acc,an,mois,jour,hrmn,lum,agg,int,atm,col,com,adr,gps,lat,long,dep\r\n" +
		"201000000001,10,1,15,1450,1,2,1,1,3,011,rue de l'\xe9glise,M,4856000,229000,750\r\n" +
		"201000000002,10,2,30,0830,1,2,1,1,3,011,,M,,,750\r\n"
	locations2010 = "Num_Acc,catr,voie,v1,v2,circ,nbv,pr,pr1,vosp,prof,plan,lartpc,larrout,surf,infra,situ,env1\r\n" +
		"201000000001,4,,0,,2,#VALEURMULTI,,,0,1,1,0,\"5,5\",1,0,1,99\r\n"
	vehicles2010 = "Num_Acc,num_veh,senc,catv,occutc,obs,obsm,choc,manv\r\n" +
		"201000000001,A01,0,7,0,0,2,1,1\r\n"
	occupants2010 = "Num_Acc,place,catu,grav,sexe,trajet,secu,locp,actp,etatp,an_nais,num_veh\r\n" +
		"201000000001,1,1,4,1,5,11,0,0,0,1985,A01\r\n" +
		"201000000002,1,1,1,2,0,11,0,0,0,1850,A01\r\n"
)

type yearFixture map[string]string

func fullYear2021() yearFixture {
	return yearFixture{
		"caracteristiques-2021.csv": accidents2021,
		"lieux-2021.csv":            locations2021,
		"vehicules-2021.csv":        vehicles2021,
		"usagers-2021.csv":          occupants2021,
	}
}

func fullYear2010() yearFixture {
	return yearFixture{
		"caracteristiques_2010.csv": accidents2010,
		"LIEUX_2010.csv":            locations2010,
		"vehicules_2010.csv":        vehicles2010,
		"usagers_2010.csv":          occupants2010,
	}
}

func writeYear(t *testing.T, root, year string, files yearFixture) string {
	t.Helper()
	dir := filepath.Join(root, year)
	require.NoError(t, os.MkdirAll(dir, 0755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}
