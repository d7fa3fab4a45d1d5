package config

// Demo key material used when a configuration supplies no keys. The modulus
// is the product of two 512-bit primes that were discarded after generation;
// it is public and must never protect anything real.
const demoModulus = "70561275211703374909803744514373343616525409336948061814552576428304911882756063157438221057954631733904832561757811415585862219457581341514498099339497333337889577520838666851422439440053205894069420368148144571648307256353037331087630917844684348982171333113262183487613936100204155013136967238140225107213"

var demoSecrets = []string{
	"15575297338206960576531650464000623533407324051500309586705972097061307935210414408157593070289160776121080265478390779717153640196803007207934915662257316126214850544895759392637767349909694154815878122327549340953013576452898487515433468210151099359332459964966081420043847208384364754855619638998603233210",
	"28943106070771905379709738750581523133875345545114040437700980306890784982278980153223178812646375097319960316734267340156901901074045056133990799822015638775012652558018264026530568697393136280737624436888246345224401247195877452243643802075724980282034370687143975100946406818302054361759074145732797015931",
	"50664225110885521188740955092224717123608235596125003507804746594508231568300819077082219366223306929719168709793314234615010356714788984534832860167406158441151715735007652275099870757474318975070597467846155620955944230771754733431383709607577087561984864085411782082070610489695704739677528411711663948148",
	"53126904541724431276010323839599808825146266189226060266442083796746181578799291149234835619797648193447030445189169376268539274368043977648250745323987645942500013515569286308575546739628923297803971812968320842170306437966127054288071923842448599030335299618896561160377218017764528420827490623642111871303",
}
